package store

import "fmt"

// ImportLog 一次导入运行
type ImportLog struct {
	ID              int64   `json:"id"`
	RunID           string  `json:"runId"`
	Kind            string  `json:"kind"`
	Source          string  `json:"source"`
	Status          string  `json:"status"`
	Products        int     `json:"products"`
	Metrics         int     `json:"metrics"`
	PriceRecords    int     `json:"priceRecords"`
	DroppedZeroRows int     `json:"droppedZeroRows"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
	StartedAt       string  `json:"startedAt"`
	CompletedAt     *string `json:"completedAt,omitempty"`
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(runID, kind, source string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO import_logs (run_id, kind, source, status)
		VALUES (?, ?, ?, 'processing')
	`, runID, kind, source)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// ImportLogUpdate 导入完成时回写的统计
type ImportLogUpdate struct {
	Status          string
	Products        int
	Metrics         int
	PriceRecords    int
	DroppedZeroRows int
	ErrorMessage    string
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(id int64, u ImportLogUpdate) error {
	_, err := s.db.Exec(`
		UPDATE import_logs SET
			status = ?,
			products = ?,
			metrics = ?,
			price_records = ?,
			dropped_zero_rows = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, u.Status, u.Products, u.Metrics, u.PriceRecords, u.DroppedZeroRows, u.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 最近的导入日志
func (s *Store) ListImportLogs(limit int) ([]ImportLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, kind, COALESCE(source, ''), status,
			products, metrics, price_records, dropped_zero_rows,
			COALESCE(error_message, ''), started_at, completed_at
		FROM import_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	defer rows.Close()

	out := make([]ImportLog, 0)
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(
			&l.ID, &l.RunID, &l.Kind, &l.Source, &l.Status,
			&l.Products, &l.Metrics, &l.PriceRecords, &l.DroppedZeroRows,
			&l.ErrorMessage, &l.StartedAt, &l.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
