// Package stream processes a stream of HL7 v2 messages, either MLLP frames
// or unframed batch text, emitting one result per message.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// MessageResult is the outcome for one message of the stream.
type MessageResult struct {
	// Index is the position of the message in the stream, or -1 for
	// stream-level errors.
	Index int

	// MessageType is MSH-9 as "CODE^TRIGGER".
	MessageType string

	// ControlID is MSH-10.
	ControlID string

	// Payload is the message text as read.
	Payload []byte

	// Result holds the validation report.
	Result *hl7v2.Result

	// Error is set when the message could not be read or parsed.
	Error error
}

// ProcessFunc decodes and validates one payload.
type ProcessFunc func(ctx context.Context, payload []byte) (*hl7v2.Result, error)

// Processor processes message streams.
type Processor struct {
	process     ProcessFunc
	bufferSize  int
	workerCount int
	maxPayload  int
}

// NewProcessor creates a stream processor.
func NewProcessor(fn ProcessFunc) *Processor {
	return &Processor{
		process:     fn,
		bufferSize:  100,
		workerCount: 4,
	}
}

// WithBufferSize sets the channel buffer size.
func (p *Processor) WithBufferSize(size int) *Processor {
	if size > 0 {
		p.bufferSize = size
	}
	return p
}

// WithWorkerCount sets the number of parallel workers.
func (p *Processor) WithWorkerCount(count int) *Processor {
	if count > 0 {
		p.workerCount = count
	}
	return p
}

// WithMaxPayload bounds a single message in bytes.
func (p *Processor) WithMaxPayload(n int) *Processor {
	if n > 0 {
		p.maxPayload = n
	}
	return p
}

// Process reads messages from r one at a time and emits their results in
// stream order. The channel is closed at end of input, on a read error or
// when ctx is cancelled.
func (p *Processor) Process(ctx context.Context, r io.Reader) <-chan *MessageResult {
	results := make(chan *MessageResult, p.bufferSize)

	go func() {
		defer close(results)

		src, err := newSource(r, p.maxPayload)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				results <- &MessageResult{Index: -1, Error: fmt.Errorf("read stream: %w", err)}
			}
			return
		}

		for index := 0; ; index++ {
			if ctx.Err() != nil {
				results <- &MessageResult{Index: index, Error: ctx.Err()}
				return
			}
			payload, err := src.next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				results <- &MessageResult{Index: index, Error: fmt.Errorf("read message %d: %w", index, err)}
				return
			}
			results <- p.processMessage(ctx, index, payload)
		}
	}()

	return results
}

func (p *Processor) processMessage(ctx context.Context, index int, payload []byte) *MessageResult {
	mr := &MessageResult{Index: index, Payload: payload}
	res, err := p.process(ctx, payload)
	if err != nil {
		mr.Error = err
		return mr
	}
	mr.Result = res
	if res != nil {
		mr.MessageType = res.MessageType
		mr.ControlID = res.ControlID
	}
	return mr
}

// ProcessParallel processes messages on several workers while emitting the
// results in stream order.
func (p *Processor) ProcessParallel(ctx context.Context, r io.Reader) <-chan *MessageResult {
	results := make(chan *MessageResult, p.bufferSize)

	go func() {
		defer close(results)

		src, err := newSource(r, p.maxPayload)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				results <- &MessageResult{Index: -1, Error: fmt.Errorf("read stream: %w", err)}
			}
			return
		}

		type workItem struct {
			index   int
			payload []byte
		}

		workChan := make(chan workItem, p.bufferSize)
		resultChan := make(chan *MessageResult, p.bufferSize)

		var wg sync.WaitGroup
		for i := 0; i < p.workerCount; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for work := range workChan {
					resultChan <- p.processMessage(ctx, work.index, work.payload)
				}
			}()
		}

		// The reader owns workChan; a read failure becomes the last result.
		go func() {
			defer func() {
				close(workChan)
				wg.Wait()
				close(resultChan)
			}()
			for index := 0; ; index++ {
				if ctx.Err() != nil {
					resultChan <- &MessageResult{Index: index, Error: ctx.Err()}
					return
				}
				payload, err := src.next()
				if errors.Is(err, io.EOF) {
					return
				}
				if err != nil {
					resultChan <- &MessageResult{Index: index, Error: fmt.Errorf("read message %d: %w", index, err)}
					return
				}
				select {
				case workChan <- workItem{index: index, payload: payload}:
				case <-ctx.Done():
					resultChan <- &MessageResult{Index: index, Error: ctx.Err()}
					return
				}
			}
		}()

		pending := make(map[int]*MessageResult)
		nextIndex := 0
		for result := range resultChan {
			pending[result.Index] = result
			for {
				r, ok := pending[nextIndex]
				if !ok {
					break
				}
				results <- r
				delete(pending, nextIndex)
				nextIndex++
			}
		}
	}()

	return results
}

// Summary aggregates the results of a stream.
type Summary struct {
	// TotalMessages is the number of messages processed
	TotalMessages int

	// MessagesWithErrors counts messages with validation errors
	MessagesWithErrors int

	// MessagesWithWarnings counts messages with warnings but no errors
	MessagesWithWarnings int

	// TotalIssues is the total number of issues found
	TotalIssues int

	// ProcessingErrors are read and parse failures, not validation errors
	ProcessingErrors []error

	// Issues holds the issues of each message by stream index
	Issues map[int][]issue.Issue
}

// Aggregate drains results into a Summary and releases each result.
func Aggregate(results <-chan *MessageResult) *Summary {
	agg := &Summary{
		Issues: make(map[int][]issue.Issue),
	}

	for result := range results {
		if result.Error != nil {
			agg.ProcessingErrors = append(agg.ProcessingErrors, result.Error)
			continue
		}

		agg.TotalMessages++

		if result.Result == nil {
			continue
		}

		issues := result.Result.Issues
		if len(issues) > 0 {
			agg.Issues[result.Index] = append([]issue.Issue(nil), issues...)
			agg.TotalIssues += len(issues)

			hasError := false
			hasWarning := false
			for _, iss := range issues {
				if iss.IsError() {
					hasError = true
				} else if iss.Severity == issue.SeverityWarning {
					hasWarning = true
				}
			}

			if hasError {
				agg.MessagesWithErrors++
			} else if hasWarning {
				agg.MessagesWithWarnings++
			}
		}

		result.Result.Release()
	}

	return agg
}

// HasErrors returns true if any message had errors or failed to process.
func (s *Summary) HasErrors() bool {
	return s.MessagesWithErrors > 0 || len(s.ProcessingErrors) > 0
}

// String returns a human-readable summary.
func (s *Summary) String() string {
	return fmt.Sprintf(
		"Processed %d messages: %d with errors, %d with warnings, %d total issues",
		s.TotalMessages,
		s.MessagesWithErrors,
		s.MessagesWithWarnings,
		s.TotalIssues,
	)
}
