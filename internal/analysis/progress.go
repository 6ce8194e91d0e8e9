package analysis

// Reporter receives coarse progress updates while an analysis runs.
// Implementations must tolerate repeated Set calls with the same value.
type Reporter interface {
	// Set records the current completion percentage for a token.
	Set(token string, percent int)
	// Clear forgets a token once its analysis finishes or fails.
	Clear(token string)
}

// NopReporter discards all progress updates.
type NopReporter struct{}

func (NopReporter) Set(string, int) {}
func (NopReporter) Clear(string)    {}
