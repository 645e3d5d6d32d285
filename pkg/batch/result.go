package batch

import (
	"errors"
	"time"
)

// MaxReportedErrors caps the error list carried in a Result. Processed
// and failed counts stay exact regardless of the cap.
const MaxReportedErrors = 10

// ErrInvalidOperation marks an unsupported operation name or a missing
// required parameter for a bulk mutation.
var ErrInvalidOperation = errors.New("invalid batch operation")

// ItemError locates one failure inside a batch job.
type ItemError struct {
	// Index is the failing item's position in the input, or the chunk
	// start offset for chunk-level failures.
	Index int `json:"index"`

	// ChunkSize is set for chunk-level failures.
	ChunkSize int `json:"chunk_size,omitempty"`

	// Message is the underlying error text.
	Message string `json:"message"`
}

// Result is the outcome of one batch job. Success is true exactly when
// no error occurred, independent of the continue-on-error policy.
type Result struct {
	Operation  string        `json:"operation"`
	Model      string        `json:"model"`
	Total      int           `json:"total"`
	Processed  int           `json:"processed"`
	Failed     int           `json:"failed"`
	CreatedIDs []int64       `json:"created_ids,omitempty"`
	Errors     []ItemError   `json:"errors,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Success    bool          `json:"success"`
}

// addError appends to the reported error list, which is bounded;
// callers track exact failed counts themselves.
func (r *Result) addError(e ItemError) {
	if len(r.Errors) < MaxReportedErrors {
		r.Errors = append(r.Errors, e)
	}
}

// finish stamps the elapsed duration and the overall success flag.
func (r *Result) finish(start time.Time) {
	r.Elapsed = time.Since(start)
	r.Success = r.Failed == 0
}
