package store

import (
	"encoding/json"
	"fmt"

	"springsnow/internal/parser"
)

// InsertImportSource 记录单个源文件的读取情况（用于追溯与容错）
func (s *Store) InsertImportSource(importLogID int64, report *parser.LoadReport) error {
	if report == nil {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO import_sources (
			import_log_id, source, file, sheet,
			total_rows, kept_rows, invalid_rows,
			dropped_json, warnings_json, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		importLogID, string(report.Source), report.File, report.Sheet,
		report.TotalRows, report.KeptRows, report.InvalidRows,
		toJSON(report.Filter.Dropped, "{}"), toJSON(report.Warnings, "[]"), report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import_sources: %w", err)
	}
	return nil
}

// ImportSource 已记录的源文件读取情况
type ImportSource struct {
	Source      string         `json:"source"`
	File        string         `json:"file"`
	Sheet       string         `json:"sheet"`
	TotalRows   int            `json:"totalRows"`
	KeptRows    int            `json:"keptRows"`
	InvalidRows int            `json:"invalidRows"`
	Dropped     map[string]int `json:"dropped"`
}

// ListImportSources 某次导入的源文件记录
func (s *Store) ListImportSources(importLogID int64) ([]ImportSource, error) {
	rows, err := s.db.Query(`
		SELECT source, COALESCE(file, ''), COALESCE(sheet, ''), total_rows, kept_rows, invalid_rows, COALESCE(dropped_json, '{}')
		FROM import_sources
		WHERE import_log_id = ?
		ORDER BY id
	`, importLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import sources: %w", err)
	}
	defer rows.Close()

	var out []ImportSource
	for rows.Next() {
		var it ImportSource
		var dropped string
		if err := rows.Scan(&it.Source, &it.File, &it.Sheet, &it.TotalRows, &it.KeptRows, &it.InvalidRows, &dropped); err != nil {
			return nil, fmt.Errorf("failed to scan import source: %w", err)
		}
		_ = json.Unmarshal([]byte(dropped), &it.Dropped)
		out = append(out, it)
	}
	return out, rows.Err()
}

// toJSON 序列化失败时返回 fallback
func toJSON(v any, fallback string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return fallback
	}
	return string(b)
}
