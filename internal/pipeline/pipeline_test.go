package pipeline_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/lexical"
	"github.com/chatlens/chatlens/internal/pipeline"
	"github.com/chatlens/chatlens/internal/wordcloud"
)

// captureHandler collects log messages so tests can assert on them.
type captureHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count(message string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.messages {
		if m == message {
			n++
		}
	}
	return n
}

const transcript = `31/05/22, 23:40 - Anna: good morning
31/05/22, 23:45 - Boris: morning
31/05/22, 23:50 - Anna: coffee time
31/05/22, 23:55 - Boris: sure`

func newAnalyzer(t *testing.T, handler slog.Handler, reporter analysis.Reporter) *pipeline.Analyzer {
	t.Helper()
	renderer, err := wordcloud.New()
	if err != nil {
		t.Fatalf("wordcloud.New() error = %v", err)
	}
	return pipeline.New(slog.New(handler), reporter, lexical.NewSuffixMorph(), renderer)
}

// Excluding every sender leaves nothing to aggregate: each statistic fails
// individually, each failure is logged, and the word cloud stage reports
// that there are no words. The run itself still succeeds.
func TestRunAllSendersExcluded(t *testing.T) {
	t.Parallel()

	handler := &captureHandler{}
	a := newAnalyzer(t, handler, nil)

	outcome, err := a.Run(context.Background(), pipeline.Request{
		Data:           []byte(transcript),
		Language:       analysis.LanguageEnglish,
		ExcludeSenders: []string{"Anna", "Boris"},
		Location:       time.UTC,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if outcome.MessageCount != 0 {
		t.Errorf("message count = %d, want 0", outcome.MessageCount)
	}
	if outcome.Stats == nil {
		t.Fatal("Stats is nil")
	}
	if got := len(outcome.Stats.Failures); got != 10 {
		t.Errorf("failed metrics = %d, want 10", got)
	}
	if got := handler.count("Statistic failed"); got != len(outcome.Stats.Failures) {
		t.Errorf("logged metric failures = %d, want %d", got, len(outcome.Stats.Failures))
	}

	if outcome.CloudErr == nil {
		t.Fatal("CloudErr is nil")
	}
	if got := analysis.Display(outcome.CloudErr); got != "Not enough words to build a word cloud." {
		t.Errorf("cloud error display = %q", got)
	}
}

func TestRunReportsMilestones(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	a := newAnalyzer(t, &captureHandler{}, reporter)

	outcome, err := a.Run(context.Background(), pipeline.Request{
		Data:          []byte(transcript),
		Language:      analysis.LanguageEnglish,
		ProgressToken: "tok",
		Location:      time.UTC,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.StatsErr != nil {
		t.Errorf("StatsErr = %v", outcome.StatsErr)
	}

	percents := reporter.history("tok")
	if len(percents) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
	if last := percents[len(percents)-1]; last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

type recordingReporter struct {
	mu      sync.Mutex
	updates map[string][]int
}

func (r *recordingReporter) Set(token string, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = map[string][]int{}
	}
	r.updates[token] = append(r.updates[token], percent)
}

func (r *recordingReporter) Clear(token string) {}

func (r *recordingReporter) history(token string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[token]
}
