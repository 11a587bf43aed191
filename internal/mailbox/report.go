package mailbox

import "fmt"

// BatchFailure records one fetch round trip that failed as a whole.
type BatchFailure struct {
	UIDs   []uint32
	Reason string
}

// FetchReport accounts for every requested UID: fetched, or part of a
// skipped batch. Callers use it to observe partial loss instead of the
// loss being silent.
type FetchReport struct {
	Requested      int
	Fetched        int
	SkippedBatches []BatchFailure
}

// AddBatchFailure records a skipped batch.
func (r *FetchReport) AddBatchFailure(uids []uint32, err error) {
	r.SkippedBatches = append(r.SkippedBatches, BatchFailure{
		UIDs:   uids,
		Reason: err.Error(),
	})
}

// SkippedCount returns how many requested UIDs were lost to failed batches.
func (r *FetchReport) SkippedCount() int {
	n := 0
	for _, b := range r.SkippedBatches {
		n += len(b.UIDs)
	}
	return n
}

// Summary is a one-line human-readable account of the fetch.
func (r *FetchReport) Summary() string {
	if len(r.SkippedBatches) == 0 {
		return fmt.Sprintf("fetched %d of %d messages", r.Fetched, r.Requested)
	}
	return fmt.Sprintf("fetched %d of %d messages (%d skipped in %d failed batches)",
		r.Fetched, r.Requested, r.SkippedCount(), len(r.SkippedBatches))
}
