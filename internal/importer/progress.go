package importer

import "sync"

// Reporter receives progress from a running import. Calls are serialized by
// the importer and fractions never decrease within one run.
type Reporter interface {
	// Progress reports a fraction in [0,1] and a short status line.
	Progress(fraction float64, status string)

	// Finished reports the terminal summary text.
	Finished(summary string)
}

// ReporterFunc adapts a function to a Reporter. Finished is delivered as a
// final Progress(1, summary) call.
type ReporterFunc func(fraction float64, status string)

func (f ReporterFunc) Progress(fraction float64, status string) { f(fraction, status) }
func (f ReporterFunc) Finished(summary string)                   { f(1, summary) }

// LatestReporter keeps only the most recent progress value. It is safe to
// read from another goroutine while an import runs.
type LatestReporter struct {
	mu       sync.RWMutex
	fraction float64
	status   string
	summary  string
	finished bool
}

func (r *LatestReporter) Progress(fraction float64, status string) {
	r.mu.Lock()
	r.fraction, r.status = fraction, status
	r.mu.Unlock()
}

func (r *LatestReporter) Finished(summary string) {
	r.mu.Lock()
	r.fraction, r.status = 1, summary
	r.summary, r.finished = summary, true
	r.mu.Unlock()
}

// Latest returns the last reported fraction and status.
func (r *LatestReporter) Latest() (float64, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fraction, r.status
}

// Summary returns the terminal summary once the import has finished.
func (r *LatestReporter) Summary() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary, r.finished
}

type nopReporter struct{}

func (nopReporter) Progress(float64, string) {}
func (nopReporter) Finished(string)          {}
