package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS client_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps token and user as rows of a key/value table, the same
// two keys the browser client kept in local storage
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the session database
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directories: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(createStateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create client_state table: %w", err)
	}

	logger.Debug("Session database ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load reads token and user
func (s *SQLiteStore) Load() (*State, error) {
	rows, err := s.db.Query(`SELECT key, value FROM client_state WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	var state State
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		switch key {
		case KeyToken:
			state.Token = value
		case KeyUser:
			if value == "null" {
				continue
			}
			var user entity.User
			if err := json.Unmarshal([]byte(value), &user); err != nil {
				s.logger.Warn("Ignoring undecodable stored user", zap.Error(err))
				continue
			}
			state.User = &user
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session rows: %w", err)
	}

	if state.Token == "" {
		return nil, ErrNoSession
	}
	return &state, nil
}

// Save writes token and user in one transaction
func (s *SQLiteStore) Save(state *State) error {
	userJSON := []byte("null")
	if state.User != nil {
		var err error
		if userJSON, err = json.Marshal(state.User); err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
	}

	return s.withTransaction(func(tx *sql.Tx) error {
		const upsert = `INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
		if _, err := tx.Exec(upsert, KeyToken, state.Token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		if _, err := tx.Exec(upsert, KeyUser, string(userJSON)); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		return nil
	})
}

// Clear deletes token and user together
func (s *SQLiteStore) Clear() error {
	return s.withTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM client_state WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTransaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
