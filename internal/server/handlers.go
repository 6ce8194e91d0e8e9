package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/runner"
)

var (
	allowedLanguages = map[string]bool{"ru": true, "en": true, "uk": true, "uk-ru": true}
	allowedPlatforms = map[string]bool{"": true, "Telegram": true, "WhatsApp": true, "Facebook": true}
)

type createRequest struct {
	TelegramID string `json:"telegram_id"`
	Language   string `json:"language"`
	Platform   string `json:"platform"`
	// UpdateOf, when set, makes this a re-analysis of an earlier row; the
	// uploaded export must then carry the same chat identity.
	UpdateOf string `json:"update_of"`
}

type analysisView struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Platform     string          `json:"platform,omitempty"`
	Language     string          `json:"language"`
	ChatName     string          `json:"chat_name,omitempty"`
	MessageCount int             `json:"message_count,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Results      json.RawMessage `json:"results,omitempty"`
	StatsError   string          `json:"stats_error,omitempty"`
	CloudError   string          `json:"cloud_error,omitempty"`
	HasWordcloud bool            `json:"has_wordcloud"`
	Error        *errorView      `json:"error,omitempty"`
}

type errorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Language == "" {
		req.Language = s.language
	}
	if !allowedLanguages[req.Language] {
		s.writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}
	if !allowedPlatforms[req.Platform] {
		s.writeError(w, http.StatusBadRequest, "unsupported platform")
		return
	}
	if req.UpdateOf != "" {
		prior, err := s.store.GetAnalysis(r.Context(), req.UpdateOf)
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, http.StatusBadRequest, "unknown analysis to update")
			return
		}
		if err != nil {
			s.log.Error("Failed to load prior analysis", "update_of", req.UpdateOf, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to load prior analysis")
			return
		}
		if prior.TelegramID != req.TelegramID {
			s.writeError(w, http.StatusBadRequest, "analysis to update belongs to a different user")
			return
		}
	}

	row := &database.Analysis{
		ID:         uuid.NewString(),
		TelegramID: req.TelegramID,
		UpdateOf:   req.UpdateOf,
		Platform:   req.Platform,
		Language:   req.Language,
		Status:     database.StatusPending,
	}
	if err := s.store.CreateAnalysis(r.Context(), row); err != nil {
		s.log.Error("Failed to create analysis", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create analysis")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": row.ID, "status": row.Status})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	row, ok := s.loadAnalysis(w, r, id)
	if !ok {
		return
	}
	if row.Status != database.StatusPending {
		s.writeError(w, http.StatusConflict, "analysis already has a file")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	job := runner.Job{
		AnalysisID:     id,
		Data:           data,
		ExcludeSenders: splitSenders(r.FormValue("exclude_senders")),
	}
	if err := s.runner.Enqueue(job); err != nil {
		if errors.Is(err, runner.ErrQueueFull) {
			s.writeError(w, http.StatusServiceUnavailable, "too many analyses in flight, try again later")
			return
		}
		s.log.Error("Failed to enqueue analysis", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to queue analysis")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": database.StatusPending})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadAnalysis(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}

	view := analysisView{
		ID:           row.ID,
		Status:       row.Status,
		Platform:     row.Platform,
		Language:     row.Language,
		ChatName:     row.ChatName,
		MessageCount: row.MessageCount,
		CreatedAt:    row.CreatedAt,
		StatsError:   row.StatsError,
		CloudError:   row.CloudError,
		HasWordcloud: len(row.Wordcloud) > 0,
	}
	if row.Results.Valid {
		view.Results = json.RawMessage(row.Results.String)
	}
	if row.Status == database.StatusError {
		view.Error = &errorView{Code: row.ErrorCode, Message: row.ErrorMessage}
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetWordcloud(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadAnalysis(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if len(row.Wordcloud) == 0 {
		s.writeError(w, http.StatusNotFound, "no word cloud for this analysis")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(row.Wordcloud); err != nil {
		s.log.Warn("Failed to write word cloud response", "error", err)
	}
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadAnalysis(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	percent, found := s.progress.Get(row.ID)
	if !found {
		// Token expired or never set; fall back to the row's lifecycle.
		if row.Status == database.StatusReady || row.Status == database.StatusError {
			percent = 100
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"percent": percent})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("Health check failed", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loadAnalysis(w http.ResponseWriter, r *http.Request, id string) (*database.Analysis, bool) {
	row, err := s.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "analysis not found")
		return nil, false
	}
	if err != nil {
		s.log.Error("Failed to load analysis", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return nil, false
	}
	return row, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func splitSenders(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	senders := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			senders = append(senders, trimmed)
		}
	}
	return senders
}
