package worker

import (
	"context"
	"fmt"
	"time"

	hl7v2 "github.com/gofhir/hl7v2"
)

// Job is one message to be processed by a worker.
type Job struct {
	// ID correlates the job with its result.
	ID string

	// Payload is the message text, bare or MLLP framed.
	Payload []byte
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Result holds the validation report. It is nil when Error is set.
	Result *hl7v2.Result

	// Error is set when the payload could not be parsed.
	Error error

	// Duration is the processing time.
	Duration time.Duration
}

// BatchResult aggregates the results of several jobs.
type BatchResult struct {
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs counts processed jobs, failed ones included.
	CompletedJobs int

	// FailedJobs counts jobs whose payload could not be parsed.
	FailedJobs int

	// TotalDuration is the summed processing time of the jobs.
	TotalDuration time.Duration
}

// HasErrors reports whether any job failed or produced validation errors.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			return true
		}
		if r.Result != nil && r.Result.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of validation errors across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Result != nil {
			count += r.Result.ErrorCount()
		}
	}
	return count
}

// Valid returns the number of messages that validated without errors.
func (br *BatchResult) Valid() int {
	n := 0
	for _, r := range br.Results {
		if r != nil && r.Error == nil && r.Result != nil && r.Result.Valid {
			n++
		}
	}
	return n
}

// run checks one job. A panicking processor fails the job instead of the
// worker.
func run(ctx context.Context, proc Processor, job Job) (jr *JobResult) {
	start := time.Now()
	jr = &JobResult{ID: job.ID}
	defer func() {
		if v := recover(); v != nil {
			jr.Result = nil
			jr.Error = fmt.Errorf("%w: %v", ErrProcessorPanic, v)
		}
		jr.Duration = time.Since(start)
	}()

	if proc == nil {
		jr.Error = ErrNoProcessor
		return jr
	}
	res, err := proc.Check(ctx, job.Payload)
	switch {
	case err != nil:
		jr.Error = err
	case res != nil:
		res.JobID = job.ID
		jr.Result = res
	}
	return jr
}
