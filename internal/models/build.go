package models

import "time"

// BuildOptions controls which phases of a build run.
type BuildOptions struct {
	// Force refetches the full comment history instead of only newer comments.
	Force bool
	// SkipFetch renders from the local store without contacting the remote source.
	SkipFetch bool
}

// BuildResult summarizes one completed build.
type BuildResult struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	FirstDay     time.Time
	LastDay      time.Time
	OutputDir    string
	ExportPath   string
	Years        []YearCount
	Fetched      int
	Shortened    int
	Days         int
	Months       int
	Total        int
	Latest       int
	Published    int
	SkippedFetch bool
}

// Duration returns how long the build took.
func (r *BuildResult) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// BuildRun is the persisted record of one build attempt.
type BuildRun struct {
	StartedAt time.Time
	Error     string
	ID        int64
	Duration  time.Duration
	Days      int
	Total     int
	Fetched   int
	Forced    bool
}

// Succeeded reports whether the run finished without error.
func (r BuildRun) Succeeded() bool {
	return r.Error == ""
}

// RunFromResult converts a build result (and the error it ended with, if any)
// into a persistable run record.
func RunFromResult(startedAt time.Time, result *BuildResult, opts BuildOptions, err error) BuildRun {
	run := BuildRun{StartedAt: startedAt, Forced: opts.Force}
	if result != nil {
		run.Duration = result.Duration()
		run.Days = result.Days
		run.Total = result.Total
		run.Fetched = result.Fetched
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}
