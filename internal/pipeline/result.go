package pipeline

// State is the outcome of one source document and target language pair.
type State string

const (
	StateSkipDisallowed    State = "skip_disallowed"
	StateSkipSameLang      State = "skip_same_lang"
	StateSkipInvalidRow    State = "skip_invalid_row"
	StateSkipMissingSource State = "skip_missing_source"
	StateUpToDate          State = "up_to_date"
	StateFresh             State = "fresh"
	StateIncremental       State = "incremental"
	StateReused            State = "reused"
	StateDryRun            State = "dry_run"
)

// Skipped reports whether the pair was not considered for translation.
func (s State) Skipped() bool {
	switch s {
	case StateSkipDisallowed, StateSkipSameLang, StateSkipInvalidRow, StateSkipMissingSource:
		return true
	}
	return false
}

// PairOutcome records what happened to one pair.
type PairOutcome struct {
	Source     string
	Target     string
	SourceLang string
	TargetLang string
	State      State
	// Reason explains skips.
	Reason string
	// Segments is the number of segments in the source document.
	Segments int
	// Reused and Translated count segment results by origin. For a fresh
	// whole-document translation Translated equals Segments.
	Reused     int
	Translated int
	// Calls is the number of translator invocations spent on the pair.
	Calls int
}

// Result summarises a run.
type Result struct {
	ManifestFound bool
	Pairs         []PairOutcome
	// Translated counts pairs written with at least one new translation.
	Translated int
	// CacheWritten is true when the cache store was saved.
	CacheWritten bool
}

// Count returns the number of pairs that ended in state s.
func (r Result) Count(s State) int {
	n := 0
	for _, p := range r.Pairs {
		if p.State == s {
			n++
		}
	}
	return n
}

// Calls returns the total number of translator invocations.
func (r Result) Calls() int {
	n := 0
	for _, p := range r.Pairs {
		n += p.Calls
	}
	return n
}
