package harvester

import "time"

// StopReason records why a collection run terminated.
type StopReason string

const (
	// StopExhausted means the upstream returned an empty page: ingestion
	// is complete through the present.
	StopExhausted StopReason = "exhausted"
	// StopCutoff means a record at or before the checkpoint timestamp was
	// reached: the run caught up with a prior run.
	StopCutoff StopReason = "cutoff"
	// StopBudget means the pages-per-run budget was spent; the run is
	// expected to be re-invoked from the persisted cursor.
	StopBudget StopReason = "budget"
	// StopDegraded means the upstream failed (transient outage or
	// malformed response) before a natural stop was reached.
	StopDegraded StopReason = "degraded_upstream"
)

// Outcome is the overall judgement of one invocation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeNoop    Outcome = "noop"
)

// Result is the terminal summary of one invocation.
type Result struct {
	// Ingested is the number of records accepted into the buffer.
	Ingested int
	// Skipped is the number of records dropped for unparseable timestamps.
	Skipped int
	// LastPage is the last fully processed page, 0 if none completed.
	LastPage int
	// NextPage is the cursor a backfill run should resume from.
	NextPage int
	// HighWater is the newest publication timestamp seen.
	HighWater time.Time
	// Artifacts lists the blob keys written during and after the run.
	Artifacts []string
	// Reason records which stopping rule fired.
	Reason StopReason
}

// Outcome derives the run's overall judgement: noop when nothing was
// ingested, partial when ingestion stopped on a degraded upstream, and
// success for every natural stop.
func (r *Result) Outcome() Outcome {
	if r.Ingested == 0 {
		return OutcomeNoop
	}
	if r.Reason == StopDegraded {
		return OutcomePartial
	}
	return OutcomeSuccess
}
