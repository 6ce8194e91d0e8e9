package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no analysis matches the given id.
var ErrNotFound = errors.New("analysis not found")

// Store defines the interface for database operations. Methods accept
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateAnalysis inserts a new pending analysis record.
	CreateAnalysis(ctx context.Context, analysis *Analysis) error

	// GetAnalysis retrieves an analysis by id. Returns ErrNotFound if absent.
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)

	// MarkProcessing transitions a pending analysis to processing.
	MarkProcessing(ctx context.Context, id string) error

	// SaveResults stores a finished run: chat metadata, the statistics JSON
	// (empty when the stage failed), the word cloud PNG (nil when that stage
	// failed) and the per-stage error displays.
	SaveResults(ctx context.Context, id string, result *AnalysisResult) error

	// SaveFailure marks an analysis as failed with a typed error code and
	// user-facing message.
	SaveFailure(ctx context.Context, id, code, message string) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// AnalysisResult is everything SaveResults persists about a finished run.
type AnalysisResult struct {
	Platform     string
	ChatName     string
	ChatIdentity string
	MessageCount int
	ResultsJSON  string
	StatsError   string
	Wordcloud    []byte
	CloudError   string
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *sqlxStore) CreateAnalysis(ctx context.Context, analysis *Analysis) error {
	now := time.Now().UTC()
	analysis.CreatedAt = now
	analysis.UpdatedAt = now
	if analysis.Status == "" {
		analysis.Status = StatusPending
	}

	query := `INSERT INTO analyses
		(id, created_at, updated_at, telegram_id, update_of, platform, language, status,
		 chat_name, chat_identity, message_count,
		 stats_error, cloud_error, error_code, error_message)
		VALUES (:id, :created_at, :updated_at, :telegram_id, :update_of, :platform, :language, :status,
		 :chat_name, :chat_identity, :message_count,
		 :stats_error, :cloud_error, :error_code, :error_message)`
	if _, err := s.db.NamedExecContext(ctx, query, analysis); err != nil {
		return fmt.Errorf("failed to create analysis %s: %w", analysis.ID, err)
	}
	s.logger.Debug("Created analysis", "id", analysis.ID, "telegram_id", analysis.TelegramID)
	return nil
}

func (s *sqlxStore) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	var analysis Analysis
	err := s.db.GetContext(ctx, &analysis, `SELECT * FROM analyses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}
	return &analysis, nil
}

func (s *sqlxStore) MarkProcessing(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark analysis %s processing: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("analysis %s is not pending: %w", id, ErrNotFound)
	}
	return nil
}

func (s *sqlxStore) SaveResults(ctx context.Context, id string, result *AnalysisResult) error {
	results := sql.NullString{String: result.ResultsJSON, Valid: result.ResultsJSON != ""}
	_, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET
			status = ?, updated_at = ?, platform = ?, chat_name = ?, chat_identity = ?,
			message_count = ?, results = ?, stats_error = ?, wordcloud = ?, cloud_error = ?
		 WHERE id = ?`,
		StatusReady, time.Now().UTC(), result.Platform, result.ChatName, result.ChatIdentity,
		result.MessageCount, results, result.StatsError, result.Wordcloud, result.CloudError,
		id)
	if err != nil {
		return fmt.Errorf("failed to save results for analysis %s: %w", id, err)
	}
	s.logger.Debug("Saved analysis results", "id", id,
		"stats_ok", result.StatsError == "",
		"cloud_ok", result.CloudError == "")
	return nil
}

func (s *sqlxStore) SaveFailure(ctx context.Context, id, code, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, updated_at = ?, error_code = ?, error_message = ? WHERE id = ?`,
		StatusError, time.Now().UTC(), code, message, id)
	if err != nil {
		return fmt.Errorf("failed to save failure for analysis %s: %w", id, err)
	}
	s.logger.Debug("Saved analysis failure", "id", id, "code", code)
	return nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	startTime := time.Now()
	for _, stmt := range []string{"VACUUM", "ANALYZE"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("maintenance statement %s failed: %w", stmt, err)
		}
	}
	s.logger.Info("Database maintenance completed", "duration", time.Since(startTime))
	return nil
}
