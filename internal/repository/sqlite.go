package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			chat_id TEXT PRIMARY KEY,
			participant_name TEXT NOT NULL,
			participant_email TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (chat_id) REFERENCES chats(chat_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			remote_run_id TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			FOREIGN KEY (chat_id) REFERENCES chats(chat_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_chat ON runs(chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			rating_id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			comment TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (chat_id) REFERENCES chats(chat_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_chat ON ratings(chat_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateChat creates a new chat. Duplicate chat ids are rejected by the
// primary key constraint.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *domain.Chat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (chat_id, participant_name, participant_email, created_at) VALUES (?, ?, ?, ?)`,
		chat.ChatID, chat.ParticipantName, chat.ParticipantEmail, chat.CreatedAt)
	return err
}

// GetChat retrieves a chat by ID. Returns nil when no row exists.
func (s *SQLiteStore) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	var chat domain.Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, participant_name, participant_email, created_at FROM chats WHERE chat_id = ?`,
		chatID).Scan(&chat.ChatID, &chat.ParticipantName, &chat.ParticipantEmail, &chat.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// AppendMessage appends a message to a chat's transcript.
func (s *SQLiteStore) AppendMessage(ctx context.Context, message *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, chat_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.MessageID, message.ChatID, message.Sender, message.Content, message.CreatedAt)
	return err
}

// ListMessages retrieves the full transcript of a chat in conversation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, chat_id, sender, content, created_at FROM messages
		 WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// QueryMessages retrieves messages matching the filter, in conversation order.
func (s *SQLiteStore) QueryMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	query := `SELECT message_id, chat_id, sender, content, created_at FROM messages WHERE 1=1`
	args := []interface{}{}

	if filter.ChatID != "" {
		query += ` AND chat_id = ?`
		args = append(args, filter.ChatID)
	}
	if filter.StartDate != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.EndDate)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.ChatID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateRun creates a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	var remoteRunID sql.NullString
	if run.RemoteRunID != "" {
		remoteRunID = sql.NullString{String: run.RemoteRunID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, chat_id, remote_run_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.ChatID, remoteRunID, run.Status, run.CreatedAt)
	return err
}

// GetRun retrieves a run by ID. Returns nil when no row exists.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, chat_id, remote_run_id, status, created_at, completed_at FROM runs WHERE run_id = ?`,
		runID)
	return scanRun(row)
}

// GetActiveRun retrieves the most recent non-terminal run for a chat, or nil.
func (s *SQLiteStore) GetActiveRun(ctx context.Context, chatID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, chat_id, remote_run_id, status, created_at, completed_at FROM runs
		 WHERE chat_id = ? AND status IN (?, ?, ?)
		 ORDER BY created_at DESC LIMIT 1`,
		chatID, domain.RunStatusQueued, domain.RunStatusInProgress, domain.RunStatusCancelling)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*domain.Run, error) {
	var run domain.Run
	var remoteRunID sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&run.RunID, &run.ChatID, &remoteRunID, &run.Status, &run.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if remoteRunID.Valid {
		run.RemoteRunID = remoteRunID.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

// UpdateRunStatus updates the status of a run.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE run_id = ?`,
		status, runID)
	return err
}

// CompleteRun moves a run to a terminal status. Runs already terminal are
// left untouched.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ? WHERE run_id = ? AND completed_at IS NULL`,
		status, time.Now(), runID)
	return err
}

// ExpireStaleRuns fails every non-terminal run older than the given age.
// Called on startup so a crashed process never leaves a chat locked.
func (s *SQLiteStore) ExpireStaleRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?
		 WHERE completed_at IS NULL AND status IN (?, ?, ?) AND created_at < ?`,
		domain.RunStatusFailed, time.Now(),
		domain.RunStatusQueued, domain.RunStatusInProgress, domain.RunStatusCancelling, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateRating creates a new rating.
func (s *SQLiteStore) CreateRating(ctx context.Context, rating *domain.Rating) error {
	var comment sql.NullString
	if rating.Comment != "" {
		comment = sql.NullString{String: rating.Comment, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ratings (rating_id, chat_id, score, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		rating.RatingID, rating.ChatID, rating.Score, comment, rating.CreatedAt)
	return err
}

// ListRatings retrieves ratings matching the filter.
func (s *SQLiteStore) ListRatings(ctx context.Context, filter domain.RatingFilter) ([]domain.Rating, error) {
	query := `SELECT rating_id, chat_id, score, comment, created_at FROM ratings WHERE 1=1`
	args := []interface{}{}

	if filter.ChatID != "" {
		query += ` AND chat_id = ?`
		args = append(args, filter.ChatID)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	if filter.MaxScore > 0 {
		query += ` AND score <= ?`
		args = append(args, filter.MaxScore)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var r domain.Rating
		var comment sql.NullString
		if err := rows.Scan(&r.RatingID, &r.ChatID, &r.Score, &comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		if comment.Valid {
			r.Comment = comment.String
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
