package worker

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/pkg/issue"
)

var errUnreadable = errors.New("unreadable payload")

// mockProcessor accepts payloads starting with MSH, reports an error issue
// for other non-empty payloads and fails on empty ones.
type mockProcessor struct {
	callCount atomic.Int32
	delay     time.Duration
}

func (m *mockProcessor) Check(ctx context.Context, payload []byte) (*hl7v2.Result, error) {
	m.callCount.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if len(payload) == 0 {
		return nil, errUnreadable
	}
	res := hl7v2.NewResult()
	if !bytes.HasPrefix(payload, []byte("MSH")) {
		res.AddIssue(issue.New(issue.DiagMessageNoHeader, nil))
	}
	return res, nil
}

var adt = []byte("MSH|^~\\&|||||||ADT^A01|1|P|2.5.1\rPID|1||12345")

func TestPool_NewPool(t *testing.T) {
	pool := NewPool(&mockProcessor{}, 2)
	defer pool.Close()

	if pool.workers != 2 {
		t.Errorf("workers = %d; want 2", pool.workers)
	}
}

func TestPool_DefaultWorkers(t *testing.T) {
	pool := NewPool(&mockProcessor{}, 0)
	defer pool.Close()

	if pool.workers <= 0 {
		t.Errorf("workers = %d; want > 0", pool.workers)
	}
}

func TestPool_SubmitAndReceive(t *testing.T) {
	pool := NewPool(&mockProcessor{}, 2)
	defer pool.Close()

	if !pool.Submit(Job{ID: "msg-1", Payload: adt}) {
		t.Fatal("expected job to be submitted")
	}

	select {
	case result := <-pool.Results():
		if result.ID != "msg-1" {
			t.Errorf("ID = %q; want %q", result.ID, "msg-1")
		}
		if result.Result == nil || !result.Result.Valid {
			t.Fatalf("Result = %+v; want valid", result.Result)
		}
		if result.Result.JobID != "msg-1" {
			t.Errorf("JobID = %q; want msg-1", result.Result.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
}

func TestPool_CloseAndWait(t *testing.T) {
	proc := &mockProcessor{}
	pool := NewPool(proc, 3)

	payloads := [][]byte{adt, []byte("PID|1"), nil, adt}
	for i, p := range payloads {
		pool.Submit(Job{ID: string(rune('a' + i)), Payload: p})
	}

	batch := pool.CloseAndWait()
	if batch.TotalJobs != 4 || batch.CompletedJobs != 4 {
		t.Errorf("jobs = %d/%d; want 4/4", batch.CompletedJobs, batch.TotalJobs)
	}
	if batch.FailedJobs != 1 {
		t.Errorf("FailedJobs = %d; want 1", batch.FailedJobs)
	}
	if len(batch.Results) != 4 {
		t.Fatalf("len(Results) = %d; want 4", len(batch.Results))
	}
	if !batch.HasErrors() {
		t.Error("expected HasErrors() = true")
	}
	if batch.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d; want 1", batch.ErrorCount())
	}
	if batch.Valid() != 2 {
		t.Errorf("Valid() = %d; want 2", batch.Valid())
	}
	if got := pool.Stats().JobsFailed; got != 1 {
		t.Errorf("JobsFailed = %d; want 1", got)
	}
}

func TestPool_SubmitToClosedPool(t *testing.T) {
	pool := NewPool(&mockProcessor{}, 2)
	pool.Close()

	if pool.Submit(Job{ID: "after-close"}) {
		t.Error("expected submit to fail after close")
	}
	if pool.SubmitAsync(Job{ID: "after-close"}) {
		t.Error("expected async submit to fail after close")
	}
}

func TestPool_DoubleClose(t *testing.T) {
	pool := NewPool(&mockProcessor{}, 2)

	pool.Close()
	pool.Close() // Should not panic
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPoolContext(ctx, &mockProcessor{}, 1)
	defer pool.Close()

	cancel()
	if pool.Submit(Job{ID: "cancelled", Payload: adt}) {
		t.Error("expected submit to fail after cancel")
	}
}

func TestPool_NilProcessor(t *testing.T) {
	pool := NewPool(nil, 2)
	defer pool.Close()

	pool.Submit(Job{ID: "nil-processor"})

	select {
	case result := <-pool.Results():
		if !errors.Is(result.Error, ErrNoProcessor) {
			t.Errorf("Error = %v; want ErrNoProcessor", result.Error)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
}

func TestPool_ProcessorPanic(t *testing.T) {
	proc := ProcessorFunc(func(context.Context, []byte) (*hl7v2.Result, error) {
		panic("segment table corrupted")
	})
	pool := NewPool(proc, 1)

	pool.Submit(Job{ID: "boom", Payload: adt})
	pool.Submit(Job{ID: "boom-2", Payload: adt})
	batch := pool.CloseAndWait()

	if batch.FailedJobs != 2 || len(batch.Results) != 2 {
		t.Fatalf("failed %d of %d results; want 2 of 2", batch.FailedJobs, len(batch.Results))
	}
	for _, jr := range batch.Results {
		if !errors.Is(jr.Error, ErrProcessorPanic) {
			t.Errorf("%s: Error = %v; want ErrProcessorPanic", jr.ID, jr.Error)
		}
		if jr.Result != nil {
			t.Errorf("%s: Result should be nil after a panic", jr.ID)
		}
	}
}

func TestPool_Stats(t *testing.T) {
	pool := NewPool(&mockProcessor{}, 2)
	defer pool.Close()

	pool.Submit(Job{ID: "stats-test", Payload: adt})

	select {
	case <-pool.Results():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}

	stats := pool.Stats()
	if stats.Workers != 2 {
		t.Errorf("Workers = %d; want 2", stats.Workers)
	}
	if stats.JobsSubmitted != 1 || stats.JobsCompleted != 1 {
		t.Errorf("stats = %+v; want 1 submitted and completed", stats)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	bp := NewBatchProcessor(&mockProcessor{}, 2)

	result := bp.ProcessBatch(context.Background(), [][]byte{})
	if result.TotalJobs != 0 {
		t.Errorf("TotalJobs = %d; want 0", result.TotalJobs)
	}
}

func TestBatchProcessor_SmallBatch(t *testing.T) {
	proc := &mockProcessor{}
	bp := NewBatchProcessor(proc, 2)

	result := bp.ProcessBatch(context.Background(), [][]byte{adt, []byte("PID|1")})
	if result.TotalJobs != 2 || result.CompletedJobs != 2 {
		t.Errorf("jobs = %d/%d; want 2/2", result.CompletedJobs, result.TotalJobs)
	}
	if int(proc.callCount.Load()) != 2 {
		t.Errorf("callCount = %d; want 2", proc.callCount.Load())
	}
	if !result.Results[0].Result.Valid || result.Results[1].Result.Valid {
		t.Error("results out of input order")
	}
}

func TestBatchProcessor_ParallelExecution(t *testing.T) {
	proc := &mockProcessor{delay: 10 * time.Millisecond}
	bp := NewBatchProcessor(proc, 4)

	payloads := make([][]byte, 10)
	for i := range payloads {
		payloads[i] = adt
	}
	payloads[7] = nil

	start := time.Now()
	result := bp.ProcessBatch(context.Background(), payloads)
	duration := time.Since(start)

	if result.TotalJobs != 10 || result.CompletedJobs != 10 {
		t.Errorf("jobs = %d/%d; want 10/10", result.CompletedJobs, result.TotalJobs)
	}
	if result.FailedJobs != 1 {
		t.Errorf("FailedJobs = %d; want 1", result.FailedJobs)
	}
	for i, r := range result.Results {
		if r.ID != string(rune('0'+i)) {
			t.Errorf("Results[%d].ID = %q", i, r.ID)
		}
	}
	if !errors.Is(result.Results[7].Error, errUnreadable) {
		t.Errorf("Results[7].Error = %v", result.Results[7].Error)
	}

	// 10 jobs of 10ms on 4 workers
	if duration > 200*time.Millisecond {
		t.Errorf("duration = %v; expected < 200ms for parallel execution", duration)
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewBatchProcessor(&mockProcessor{}, 2).ProcessBatch(ctx, [][]byte{adt, adt})
	if result.CompletedJobs != 0 {
		t.Errorf("CompletedJobs = %d; want 0", result.CompletedJobs)
	}
	if result.Results[0] != nil {
		t.Error("expected unprocessed slot to stay nil")
	}
}

func TestBatchResult_HasErrors(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		br := &BatchResult{Results: []*JobResult{{ID: "1"}, nil}}
		if br.HasErrors() {
			t.Error("expected HasErrors() = false for nil result")
		}
	})

	t.Run("with error", func(t *testing.T) {
		br := &BatchResult{Results: []*JobResult{{ID: "1", Error: ErrNoProcessor}}}
		if !br.HasErrors() {
			t.Error("expected HasErrors() = true when error present")
		}
	})
}

func TestProcessBatchSimple(t *testing.T) {
	proc := &mockProcessor{}
	result := ProcessBatchSimple(context.Background(), ProcessorFunc(proc.Check), [][]byte{adt, adt, adt})
	if result.TotalJobs != 3 {
		t.Errorf("TotalJobs = %d; want 3", result.TotalJobs)
	}
	if int(proc.callCount.Load()) != 3 {
		t.Errorf("callCount = %d; want 3", proc.callCount.Load())
	}
}
