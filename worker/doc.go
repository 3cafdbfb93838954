// Package worker provides a worker pool for parallel message processing.
//
// The pool decodes and validates many HL7 v2 messages concurrently, for
// example the messages of a batch file or the backlog of an interface
// engine queue.
//
// Example usage:
//
//	codec, _ := engine.New()
//	pool := worker.NewPool(codec, 4)
//
//	for i, payload := range payloads {
//	    pool.Submit(worker.Job{ID: strconv.Itoa(i), Payload: payload})
//	}
//
//	batch := pool.CloseAndWait()
//	for _, r := range batch.Results {
//	    if r.Error != nil {
//	        // the payload could not be parsed
//	    }
//	    // inspect r.Result
//	}
package worker
