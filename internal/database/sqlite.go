package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

type sqliteDB struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteDB(cfg *config.Config, log logger.Logger) (Database, error) {
	db, err := sql.Open("sqlite", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"DSN": cfg.GetDatabaseDSN(),
	}).Debug("Database opened")

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return &sqliteDB{db: db, logger: log}, nil
}

func (s *sqliteDB) Exec(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

func (s *sqliteDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqliteDB) Query(query string, args ...any) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

func (s *sqliteDB) QueryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(query, args...)
}

func (s *sqliteDB) Close() error {
	return s.db.Close()
}

func (s *sqliteDB) ExecWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	var err error
	for i := range 3 {
		res, err = s.ExecContext(ctx, query, args...)
		if err == nil || !strings.Contains(err.Error(), "database is locked") {
			return res, err
		}
		s.logger.WithFields(logger.Fields{
			"attempt": i + 1,
			"query":   query,
			"error":   err.Error(),
		}).Warn("Database locked, retrying...")
		time.Sleep(100 * time.Millisecond * time.Duration(i+1))
	}
	return res, err
}

func (s *sqliteDB) SaveConversation(ctx context.Context, conv Conversation) error {
	_, err := s.ExecWithRetry(ctx, `
		INSERT INTO conversations (user_id, capability, prompt, response, provider, request_id, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, conv.UserID, conv.Capability, conv.Prompt, conv.Response, conv.Provider, conv.RequestID, conv.DurationMs)
	return err
}

func (s *sqliteDB) PurgeOldConversations(olderThan time.Duration) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM conversations WHERE created_at < datetime('now', ?)",
		fmt.Sprintf("-%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteDB) PurgeOldTasks(olderThan time.Duration) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM tasks WHERE status IN ('complete', 'failed') AND created_at < datetime('now', ?)",
		fmt.Sprintf("-%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteDB) GetDB() *sql.DB {
	return s.db
}
