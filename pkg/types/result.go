package types

// OutcomeStatus classifies the fate of one submitted file.
type OutcomeStatus string

const (
	// StatusSucceeded indicates the file was processed and its artifact
	// materialized.
	StatusSucceeded OutcomeStatus = "succeeded"
	// StatusWorkerFailed indicates the owning worker's call failed at the
	// transport or application level.
	StatusWorkerFailed OutcomeStatus = "worker_failed"
	// StatusWorkerTimedOut indicates the owning worker's call exceeded the
	// dispatch timeout.
	StatusWorkerTimedOut OutcomeStatus = "worker_timed_out"
	// StatusDecodeError indicates the worker's response, or this file's
	// entry within it, could not be decoded.
	StatusDecodeError OutcomeStatus = "decode_error"
	// StatusPersistError indicates the decoded artifact could not be
	// written to its destination.
	StatusPersistError OutcomeStatus = "persist_error"
)

// FileOutcome is the per-file record returned to the client. The outcome
// sequence of a submission is always in exact bijection with the submitted
// files, in original order.
type FileOutcome struct {
	Index    int           `json:"index"`
	Filename string        `json:"filename"`
	Status   OutcomeStatus `json:"status"`
	Path     string        `json:"path,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Succeeded reports whether the outcome is a success.
func (o FileOutcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// JobSummary aggregates the outcomes of one submission. It is built once
// per dispatch cycle and returned to the client, never retained.
type JobSummary struct {
	SubmissionID string        `json:"submission_id"`
	Kind         JobKind       `json:"task_type"`
	Total        int           `json:"total_files"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	ElapsedMS    int64         `json:"elapsed_ms"`
	Files        []FileOutcome `json:"files"`
}

// NewJobSummary assembles a summary from an ordered outcome sequence.
func NewJobSummary(id string, kind JobKind, files []FileOutcome, elapsedMS int64) *JobSummary {
	s := &JobSummary{
		SubmissionID: id,
		Kind:         kind,
		Total:        len(files),
		ElapsedMS:    elapsedMS,
		Files:        files,
	}
	for _, f := range files {
		if f.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
