package pool

import (
	"strings"
	"sync"
	"testing"
)

func TestLines(t *testing.T) {
	l := AcquireLines()
	for _, id := range []string{"MSH", "PID", "ORC"} {
		l.Add(id)
	}
	if got := strings.Join(*l, ","); got != "MSH,PID,ORC" {
		t.Errorf("lines = %q; want MSH,PID,ORC", got)
	}
	l.Release()

	l2 := AcquireLines()
	if len(*l2) != 0 {
		t.Errorf("acquired list has %d lines; want 0", len(*l2))
	}
	l2.Release()

	var nilLines *Lines
	nilLines.Release()
}

func TestLines_Oversized(t *testing.T) {
	l := AcquireLines()
	for i := 0; i <= maxPooledLines; i++ {
		l.Add("OBX")
	}
	l.Release()
	if len(*l) != maxPooledLines+1 {
		t.Errorf("oversized list was reset: %d lines", len(*l))
	}
}

func TestBuffer(t *testing.T) {
	b := AcquireBuffer()
	b.WriteString("PID")
	_ = b.WriteByte('|')
	b.WriteRune('é')
	b.WriteString("|||")
	b.TrimSuffixRune('|')

	if got, want := b.String(), "PID|é"; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
	if b.Len() != len("PID|é") {
		t.Errorf("Len() = %d", b.Len())
	}
	b.Release()

	b2 := AcquireBuffer()
	if b2.Len() != 0 {
		t.Errorf("acquired buffer not reset: %d", b2.Len())
	}
	b2.Release()

	var nilBuf *Buffer
	nilBuf.Release()
}

func TestBuild(t *testing.T) {
	got := Build(func(b *Buffer) {
		b.WriteString("EVN")
		b.WriteString("|A01")
	})
	if got != "EVN|A01" {
		t.Errorf("Build() = %q; want EVN|A01", got)
	}
}

func TestBuild_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := Build(func(b *Buffer) { b.WriteString("MSH|^~\\&") })
				if s != "MSH|^~\\&" {
					t.Errorf("unexpected %q", s)
					return
				}
			}
		}()
	}
	wg.Wait()
}
