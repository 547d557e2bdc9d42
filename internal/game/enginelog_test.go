package game

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Garsondee/Robot-Sense/internal/protocol"
)

func TestEngineLog_RecentIsChronological(t *testing.T) {
	el := NewEngineLog()
	for i := 0; i < 5; i++ {
		el.Add(protocol.Diagnostic{Text: fmt.Sprintf("line %d", i)})
	}
	got := el.Recent()
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
	for i, d := range got {
		if d.Text != fmt.Sprintf("line %d", i) {
			t.Fatalf("entry %d out of order: %q", i, d.Text)
		}
	}
}

func TestEngineLog_WrapsAtCapacity(t *testing.T) {
	el := NewEngineLog()
	sink := el.Sink()
	for i := 0; i < logMaxEntries+7; i++ {
		sink(protocol.Diagnostic{Text: fmt.Sprintf("line %d", i)})
	}
	got := el.Recent()
	if len(got) != logMaxEntries {
		t.Fatalf("expected %d entries, got %d", logMaxEntries, len(got))
	}
	if got[0].Text != "line 7" {
		t.Fatalf("oldest entry should be line 7, got %q", got[0].Text)
	}
	if last := got[len(got)-1].Text; last != fmt.Sprintf("line %d", logMaxEntries+6) {
		t.Fatalf("unexpected newest entry %q", last)
	}
	if el.Total() != logMaxEntries+7 {
		t.Fatalf("expected total %d, got %d", logMaxEntries+7, el.Total())
	}
}

func TestEngineLog_ConcurrentWriters(t *testing.T) {
	el := NewEngineLog()
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(stream protocol.Stream) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				el.Add(protocol.Diagnostic{Stream: stream, Text: "x"})
				_ = el.Recent()
			}
		}(protocol.Stream(w))
	}
	wg.Wait()
	if el.Total() != 1000 {
		t.Fatalf("expected 1000 entries, got %d", el.Total())
	}
}

func TestFormatDiagnostic(t *testing.T) {
	if got := formatDiagnostic(protocol.Diagnostic{Stream: protocol.StreamError, Text: "boom"}); got != "! boom" {
		t.Fatalf("stderr lines should be flagged, got %q", got)
	}
	long := formatDiagnostic(protocol.Diagnostic{Text: strings.Repeat("a", 200)})
	if len(long) != logLineChars || !strings.HasSuffix(long, "~") {
		t.Fatalf("long line should be truncated to %d chars, got %d: %q", logLineChars, len(long), long)
	}
}
