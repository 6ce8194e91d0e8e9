package database

import (
	"database/sql"
	"time"
)

// Analysis lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

// Analysis represents one chat export analysis: who requested it, what was
// uploaded, and, once processed, the statistics JSON and word cloud bitmap.
// Results and Wordcloud are NULL until the run finishes; StatsError and
// CloudError record isolated stage failures while the row stays ready.
type Analysis struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	TelegramID string `db:"telegram_id"`
	// UpdateOf names the earlier analysis this one re-runs; the runner
	// verifies the fresh export against that row's chat identity.
	UpdateOf string `db:"update_of"`
	Platform string `db:"platform"`
	Language string `db:"language"`
	Status   string `db:"status"`

	ChatName     string `db:"chat_name"`
	ChatIdentity string `db:"chat_identity"`
	MessageCount int    `db:"message_count"`

	Results      sql.NullString `db:"results"`
	StatsError   string         `db:"stats_error"`
	CloudError   string         `db:"cloud_error"`
	ErrorCode    string         `db:"error_code"`
	ErrorMessage string         `db:"error_message"`
	Wordcloud    []byte         `db:"wordcloud"`
}
