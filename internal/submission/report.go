package submission

import (
	"time"

	"proxyoda/internal/manifest"
	"proxyoda/internal/services/ame"
)

// Outcome is the final state of one job within a run.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeBusyExhausted  Outcome = "busy_exhausted"
	OutcomeRejected       Outcome = "rejected"
	OutcomeOffline        Outcome = "offline"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeSkipped        Outcome = "skipped"
)

// Succeeded reports whether AME is expected to encode the job.
func (o Outcome) Succeeded() bool {
	return o == OutcomeAccepted
}

// JobResult is the final per-job record. Attempts counts POST /job requests
// actually sent; Final is the classification of the last one.
type JobResult struct {
	Index    int
	Job      manifest.JobDescriptor
	Outcome  Outcome
	Attempts int
	Final    ame.Result
	Err      error
	Duration time.Duration
}

// Counts tallies outcomes across a run. Offline and transport failures are
// counted as Errored.
type Counts struct {
	Accepted      int
	BusyExhausted int
	Rejected      int
	Errored       int
	Skipped       int
}

// Failed is the number of jobs that did not end accepted.
func (c Counts) Failed() int {
	return c.BusyExhausted + c.Rejected + c.Errored + c.Skipped
}

// Report summarizes a submission run. Results keep input order.
type Report struct {
	RunID    string
	Counts   Counts
	Results  []JobResult
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// AllAccepted reports whether every job ended accepted.
func (r Report) AllAccepted() bool {
	return r.Counts.Failed() == 0
}

func (r *Report) add(result JobResult) {
	r.Results = append(r.Results, result)
	switch result.Outcome {
	case OutcomeAccepted:
		r.Counts.Accepted++
	case OutcomeBusyExhausted:
		r.Counts.BusyExhausted++
	case OutcomeRejected:
		r.Counts.Rejected++
	case OutcomeSkipped:
		r.Counts.Skipped++
	default:
		r.Counts.Errored++
	}
}

func outcomeFor(kind ame.Kind) Outcome {
	switch kind {
	case ame.KindAccepted, ame.KindSocketResetLikelySuccess:
		return OutcomeAccepted
	case ame.KindBusy:
		return OutcomeBusyExhausted
	case ame.KindOffline:
		return OutcomeOffline
	case ame.KindTransportError:
		return OutcomeTransportError
	default:
		return OutcomeRejected
	}
}
