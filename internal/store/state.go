package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// 运行状态键，存于 config 表
const (
	keyLastRunID      = "last_run_id"
	keyLastImportAt   = "last_import_at"
	keyLastPriceRunID = "last_price_run_id"
)

// ErrNoRun 尚未记录过导入
var ErrNoRun = errors.New("no import run recorded")

const upsertStateSQL = `
	INSERT INTO config (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

func (s *Store) state(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRun
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// GetLastRun 最近一次日指标导入的 run_id 与时间；未导入过时返回 ErrNoRun
func (s *Store) GetLastRun() (runID, importedAt string, err error) {
	if runID, err = s.state(keyLastRunID); err != nil {
		return "", "", err
	}
	if importedAt, err = s.state(keyLastImportAt); err != nil {
		return "", "", err
	}
	return runID, importedAt, nil
}

// SetLastRun 记录最近一次日指标导入
func (s *Store) SetLastRun(runID, importedAt string) error {
	return s.withTx(func(tx *sql.Tx) error {
		for key, value := range map[string]string{keyLastRunID: runID, keyLastImportAt: importedAt} {
			if _, err := tx.Exec(upsertStateSQL, key, value); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
		return nil
	})
}

// GetLastPriceRun 最近一次调价表导入的 run_id
func (s *Store) GetLastPriceRun() (string, error) {
	return s.state(keyLastPriceRunID)
}

// SetLastPriceRun 记录最近一次调价表导入
func (s *Store) SetLastPriceRun(runID string) error {
	if _, err := s.db.Exec(upsertStateSQL, keyLastPriceRunID, runID); err != nil {
		return fmt.Errorf("failed to write %s: %w", keyLastPriceRunID, err)
	}
	return nil
}
