package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/mllp"
)

var errNoHeader = errors.New("no header")

// mockProcess reports the control id from the tenth MSH field, an error
// issue for payloads containing "ERROR" and a warning for "WARN".
func mockProcess(_ context.Context, payload []byte) (*hl7v2.Result, error) {
	if !bytes.HasPrefix(payload, []byte("MSH")) {
		return nil, errNoHeader
	}
	res := hl7v2.AcquireResult()
	if fields := strings.Split(string(payload), "|"); len(fields) > 9 {
		res.MessageType = fields[8]
		res.ControlID = fields[9]
	}
	if bytes.Contains(payload, []byte("ERROR")) {
		res.AddIssue(issue.New(issue.DiagMessageNoHeader, nil))
	}
	if bytes.Contains(payload, []byte("WARN")) {
		res.AddIssue(issue.New(issue.DiagRuleEvalError, map[string]any{"key": "k", "error": "e"}))
	}
	return res, nil
}

func msg(id string, extra ...string) string {
	segs := append([]string{"MSH|^~\\&|||||||ADT^A01|" + id + "|P|2.5.1", "PID|1||12345"}, extra...)
	return strings.Join(segs, "\r")
}

func framed(msgs ...string) []byte {
	var buf bytes.Buffer
	w := mllp.NewWriter(&buf, 0)
	for _, m := range msgs {
		if err := w.WriteMessage([]byte(m)); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

func collect(ch <-chan *MessageResult) []*MessageResult {
	var out []*MessageResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestProcess_Framed(t *testing.T) {
	p := NewProcessor(mockProcess)
	input := framed(msg("A"), msg("B"), msg("C"))

	results := collect(p.Process(context.Background(), bytes.NewReader(input)))
	if len(results) != 3 {
		t.Fatalf("got %d results; want 3", len(results))
	}
	for i, r := range results {
		if r.Error != nil {
			t.Fatalf("message %d: %v", i, r.Error)
		}
		if r.Index != i {
			t.Errorf("Index = %d; want %d", r.Index, i)
		}
		if want := string(rune('A' + i)); r.ControlID != want {
			t.Errorf("ControlID = %q; want %q", r.ControlID, want)
		}
		if r.MessageType != "ADT^A01" {
			t.Errorf("MessageType = %q", r.MessageType)
		}
	}
}

func TestProcess_BatchText(t *testing.T) {
	input := strings.Join([]string{
		"FHS|^~\\&",
		"BHS|^~\\&",
		msg("A"),
		"",
		msg("B", "NTE|1"),
		"BTS|2",
		"FTS|1",
	}, "\r\n")

	results := collect(NewProcessor(mockProcess).Process(context.Background(), strings.NewReader(input)))
	if len(results) != 2 {
		t.Fatalf("got %d results; want 2", len(results))
	}
	if got := string(results[1].Payload); got != msg("B", "NTE|1") {
		t.Errorf("payload = %q", got)
	}
	if results[0].ControlID != "A" || results[1].ControlID != "B" {
		t.Errorf("control ids = %s %s", results[0].ControlID, results[1].ControlID)
	}
}

func TestProcess_Empty(t *testing.T) {
	for _, input := range []string{"", "  \r\n"} {
		if results := collect(NewProcessor(mockProcess).Process(context.Background(), strings.NewReader(input))); len(results) != 0 {
			t.Errorf("%q: got %d results; want 0", input, len(results))
		}
	}
}

func TestProcess_ParseError(t *testing.T) {
	input := framed(msg("A"), "PID|1", msg("C"))

	results := collect(NewProcessor(mockProcess).Process(context.Background(), bytes.NewReader(input)))
	if len(results) != 3 {
		t.Fatalf("got %d results; want 3", len(results))
	}
	if !errors.Is(results[1].Error, errNoHeader) {
		t.Errorf("Error = %v; want errNoHeader", results[1].Error)
	}
	if results[2].Error != nil {
		t.Errorf("processing should continue after a bad message: %v", results[2].Error)
	}
}

func TestProcess_TruncatedFrame(t *testing.T) {
	input := append(framed(msg("A")), mllp.StartBlock, 'M', 'S', 'H')

	results := collect(NewProcessor(mockProcess).Process(context.Background(), bytes.NewReader(input)))
	if len(results) != 2 {
		t.Fatalf("got %d results; want 2", len(results))
	}
	if !errors.Is(results[1].Error, mllp.ErrNoEndBlock) {
		t.Errorf("Error = %v; want ErrNoEndBlock", results[1].Error)
	}
}

func TestProcess_PayloadTooLarge(t *testing.T) {
	p := NewProcessor(mockProcess).WithMaxPayload(16)

	results := collect(p.Process(context.Background(), bytes.NewReader(framed(msg("A")))))
	if len(results) != 1 || !errors.Is(results[0].Error, mllp.ErrPayloadTooLarge) {
		t.Fatalf("results = %+v; want one ErrPayloadTooLarge", results)
	}

	results = collect(p.Process(context.Background(), strings.NewReader(msg("A"))))
	if len(results) != 1 || !errors.Is(results[0].Error, mllp.ErrPayloadTooLarge) {
		t.Fatalf("batch results = %+v; want one ErrPayloadTooLarge", results)
	}
}

func TestProcessParallel_Order(t *testing.T) {
	msgs := make([]string, 50)
	for i := range msgs {
		msgs[i] = msg(fmt.Sprint(i))
	}

	p := NewProcessor(mockProcess).WithWorkerCount(4)
	results := collect(p.ProcessParallel(context.Background(), bytes.NewReader(framed(msgs...))))
	if len(results) != 50 {
		t.Fatalf("got %d results; want 50", len(results))
	}
	for i, r := range results {
		if r.Index != i || r.ControlID != fmt.Sprint(i) {
			t.Errorf("result %d: index %d control %q", i, r.Index, r.ControlID)
		}
	}
}

func TestProcess_ContextCancellation(t *testing.T) {
	msgs := make([]string, 100)
	for i := range msgs {
		msgs[i] = msg(fmt.Sprint(i))
	}
	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	for range NewProcessor(mockProcess).WithBufferSize(1).Process(ctx, bytes.NewReader(framed(msgs...))) {
		count++
		if count == 1 {
			cancel()
		}
	}

	if count >= 100 {
		t.Errorf("expected early termination, processed %d messages", count)
	}
}

func TestAggregate(t *testing.T) {
	input := framed(msg("1"), msg("2", "NTE|1|ERROR"), msg("3", "NTE|1|WARN"), msg("4", "NTE|1|ERROR WARN"), "PID|1")

	agg := Aggregate(NewProcessor(mockProcess).Process(context.Background(), bytes.NewReader(input)))

	if agg.TotalMessages != 4 {
		t.Errorf("TotalMessages = %d; want 4", agg.TotalMessages)
	}
	if agg.MessagesWithErrors != 2 {
		t.Errorf("MessagesWithErrors = %d; want 2", agg.MessagesWithErrors)
	}
	if agg.MessagesWithWarnings != 1 {
		t.Errorf("MessagesWithWarnings = %d; want 1", agg.MessagesWithWarnings)
	}
	if agg.TotalIssues != 4 {
		t.Errorf("TotalIssues = %d; want 4", agg.TotalIssues)
	}
	if len(agg.ProcessingErrors) != 1 {
		t.Errorf("ProcessingErrors = %v; want 1", agg.ProcessingErrors)
	}
	if len(agg.Issues[3]) != 2 {
		t.Errorf("Issues[3] = %v", agg.Issues[3])
	}
	if !agg.HasErrors() {
		t.Error("HasErrors() should return true")
	}
	if !strings.HasPrefix(agg.String(), "Processed 4 messages") {
		t.Errorf("String() = %q", agg.String())
	}
}

func TestProcessor_Options(t *testing.T) {
	p := NewProcessor(mockProcess).WithBufferSize(50).WithWorkerCount(8).WithMaxPayload(1024)
	if p.bufferSize != 50 || p.workerCount != 8 || p.maxPayload != 1024 {
		t.Errorf("options = %d %d %d", p.bufferSize, p.workerCount, p.maxPayload)
	}

	p = NewProcessor(mockProcess).WithBufferSize(0).WithWorkerCount(-1).WithMaxPayload(-1)
	if p.bufferSize != 100 || p.workerCount != 4 || p.maxPayload != 0 {
		t.Errorf("defaults = %d %d %d", p.bufferSize, p.workerCount, p.maxPayload)
	}
}

func TestScanSegments(t *testing.T) {
	input := "A\rB\nC\r\nD"
	var got []string
	src := newBatchSource(strings.NewReader(input), 0)
	for src.sc.Scan() {
		got = append(got, src.sc.Text())
	}
	if strings.Join(got, ",") != "A,B,C,D" {
		t.Errorf("segments = %v", got)
	}
}

func BenchmarkProcess(b *testing.B) {
	msgs := make([]string, 100)
	for i := range msgs {
		msgs[i] = msg(fmt.Sprint(i))
	}
	input := framed(msgs...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for r := range NewProcessor(mockProcess).Process(context.Background(), bytes.NewReader(input)) {
			if r.Result != nil {
				r.Result.Release()
			}
		}
	}
}
