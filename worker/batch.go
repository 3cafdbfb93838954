package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
)

// BatchProcessor processes a fixed set of payloads in parallel and returns
// the results in input order.
type BatchProcessor struct {
	processor Processor
	workers   int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(processor Processor, workers int) *BatchProcessor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchProcessor{
		processor: processor,
		workers:   workers,
	}
}

// ProcessBatch processes payloads. Result i belongs to payload i and its ID
// is the decimal index. Payloads left unprocessed after ctx is cancelled
// have a nil result.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, payloads [][]byte) *BatchResult {
	if len(payloads) == 0 {
		return &BatchResult{Results: make([]*JobResult, 0)}
	}

	// Small batches are not worth the goroutines.
	if len(payloads) <= 2 {
		return bp.processSequential(ctx, payloads)
	}

	return bp.processParallel(ctx, payloads)
}

func (bp *BatchProcessor) run(ctx context.Context, index int, payload []byte) *JobResult {
	return run(ctx, bp.processor, Job{ID: strconv.Itoa(index), Payload: payload})
}

func (bp *BatchProcessor) processSequential(ctx context.Context, payloads [][]byte) *BatchResult {
	br := &BatchResult{
		Results:   make([]*JobResult, len(payloads)),
		TotalJobs: len(payloads),
	}

	for i, payload := range payloads {
		if ctx.Err() != nil {
			break
		}
		br.add(i, bp.run(ctx, i, payload))
	}

	return br
}

func (bp *BatchProcessor) processParallel(ctx context.Context, payloads [][]byte) *BatchResult {
	numWorkers := min(bp.workers, len(payloads))

	jobs := make(chan int, len(payloads))
	resultsChan := make(chan *indexedResult, len(payloads))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				resultsChan <- &indexedResult{index: idx, result: bp.run(ctx, idx, payloads[idx])}
			}
		}()
	}

	for i := range payloads {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	br := &BatchResult{
		Results:   make([]*JobResult, len(payloads)),
		TotalJobs: len(payloads),
	}
	for ir := range resultsChan {
		br.add(ir.index, ir.result)
	}

	return br
}

func (br *BatchResult) add(i int, jr *JobResult) {
	br.Results[i] = jr
	br.CompletedJobs++
	br.TotalDuration += jr.Duration
	if jr.Error != nil {
		br.FailedJobs++
	}
}

type indexedResult struct {
	index  int
	result *JobResult
}

// ProcessBatchSimple processes payloads with one worker per CPU.
func ProcessBatchSimple(ctx context.Context, processor Processor, payloads [][]byte) *BatchResult {
	return NewBatchProcessor(processor, runtime.NumCPU()).ProcessBatch(ctx, payloads)
}
