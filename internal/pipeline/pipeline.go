// Package pipeline runs a full chat analysis: parse, normalize, aggregate
// statistics, and render a word cloud. The two result stages are isolated
// from each other, so a statistics failure still yields a word cloud and
// vice versa; only parsing and identity checks abort the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/lexical"
	"github.com/chatlens/chatlens/internal/wordcloud"
)

// Progress milestones. Parsing and normalization are quick; the bulk of a
// run is Russian morphology, which fills the 53..85 window proportionally.
const (
	progressStart      = 2
	progressParsed     = 20
	progressNormalized = 35
	progressStatsBegin = 45
	progressStatsDone  = 50
	progressLexBegin   = 53
	progressLexDone    = 85
	progressRendered   = 90
	progressDone       = 100
)

// Request describes one analysis run.
type Request struct {
	// Data is the raw export file.
	Data []byte
	// Platform selects the parser; empty means sniff from the content.
	Platform analysis.Platform
	// Language drives the lexical stage; empty defaults to Russian.
	Language analysis.Language
	// ExcludeSenders are dropped before normalization.
	ExcludeSenders []string
	// PriorIdentity, when set, must match the export's chat identity.
	PriorIdentity string
	// ProgressToken keys progress updates; empty disables reporting.
	ProgressToken string
	// Location resolves naive timestamps; nil means the process zone.
	Location *time.Location
}

// Outcome carries everything a run produced. StatsErr and CloudErr are
// the isolated per-stage failures; both stages may succeed, fail, or mix.
type Outcome struct {
	ChatName     string
	Identity     string
	Platform     analysis.Platform
	MessageCount int
	Stats        *analysis.Stats
	StatsErr     error
	CloudPNG     []byte
	CloudErr     error
}

// Analyzer is the reusable pipeline. It is safe for sequential reuse; a
// single run never spawns goroutines.
type Analyzer struct {
	log      *slog.Logger
	reporter analysis.Reporter
	morph    lexical.Morph
	renderer *wordcloud.Renderer
}

func New(log *slog.Logger, reporter analysis.Reporter, morph lexical.Morph, renderer *wordcloud.Renderer) *Analyzer {
	if reporter == nil {
		reporter = analysis.NopReporter{}
	}
	return &Analyzer{
		log:      log.With("component", "pipeline"),
		reporter: reporter,
		morph:    morph,
		renderer: renderer,
	}
}

// Run executes the pipeline. Parse, exclusion, identity and normalization
// failures are fatal and return an error; statistics and word cloud
// failures are recorded in the Outcome instead.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lang := req.Language
	if lang == "" {
		lang = analysis.LanguageRussian
	}
	loc := req.Location
	if loc == nil {
		loc = time.Local
	}

	a.setProgress(req.ProgressToken, progressStart)

	chat, err := analysis.Parse(req.Data, req.Platform, loc)
	if err != nil {
		return nil, err
	}
	a.setProgress(req.ProgressToken, progressParsed)
	a.log.Debug("Parsed chat export",
		"platform", chat.Platform,
		"chat", chat.Name,
		"messages", len(chat.Messages))

	analysis.ExcludeSenders(chat, req.ExcludeSenders)
	if err := analysis.VerifyIdentity(chat, req.PriorIdentity); err != nil {
		return nil, err
	}

	msgs := analysis.Normalize(chat)
	a.setProgress(req.ProgressToken, progressNormalized)

	outcome := &Outcome{
		ChatName:     chat.Name,
		Identity:     chat.Identity,
		Platform:     chat.Platform,
		MessageCount: len(msgs),
	}

	a.setProgress(req.ProgressToken, progressStatsBegin)
	outcome.Stats, outcome.StatsErr = a.aggregate(msgs, chat.Platform)
	if outcome.StatsErr != nil {
		a.log.Warn("Statistics stage failed", "error", outcome.StatsErr)
	}
	if outcome.Stats != nil {
		for metric, cause := range outcome.Stats.Failures {
			a.log.Warn("Statistic failed", "metric", metric, "error", cause)
		}
	}
	a.setProgress(req.ProgressToken, progressStatsDone)

	outcome.CloudPNG, outcome.CloudErr = a.renderCloud(req.ProgressToken, msgs, chat.Platform, lang)
	if outcome.CloudErr != nil {
		a.log.Warn("Word cloud stage failed", "error", outcome.CloudErr)
	}
	a.setProgress(req.ProgressToken, progressDone)

	a.log.Info("Analysis finished",
		"platform", chat.Platform,
		"messages", len(msgs),
		"stats_ok", outcome.StatsErr == nil,
		"cloud_ok", outcome.CloudErr == nil)
	return outcome, nil
}

func (a *Analyzer) aggregate(msgs []analysis.CanonicalMessage, platform analysis.Platform) (stats *analysis.Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			stats = nil
			err = analysis.NewInternalAnalysisError(
				"Something went wrong while computing statistics.",
				fmt.Errorf("aggregation panic: %v", r))
		}
	}()
	return analysis.Aggregate(msgs, platform), nil
}

func (a *Analyzer) renderCloud(token string, msgs []analysis.CanonicalMessage, platform analysis.Platform, lang analysis.Language) (png []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			png = nil
			err = analysis.NewInternalAnalysisError(
				"Something went wrong while building the word cloud.",
				fmt.Errorf("word cloud panic: %v", r))
		}
	}()

	a.setProgress(token, progressLexBegin)
	tick := func(done, total int) {
		if total == 0 {
			return
		}
		span := progressLexDone - progressLexBegin
		a.setProgress(token, progressLexBegin+done*span/total)
	}
	result, err := lexical.Build(msgs, platform, lang, a.morph, tick)
	if err != nil {
		return nil, err
	}
	a.setProgress(token, progressLexDone)

	if result.Frequencies != nil {
		png, err = a.renderer.RenderFrequencies(result.Frequencies)
	} else {
		png, err = a.renderer.RenderWords(result.Words, result.Stopwords)
	}
	if errors.Is(err, wordcloud.ErrNoWords) {
		return nil, analysis.NewInternalAnalysisError("Not enough words to build a word cloud.", err)
	}
	if err != nil {
		return nil, analysis.NewInternalAnalysisError("Something went wrong while building the word cloud.", err)
	}
	a.setProgress(token, progressRendered)
	return png, nil
}

func (a *Analyzer) setProgress(token string, percent int) {
	if token != "" {
		a.reporter.Set(token, percent)
	}
}
