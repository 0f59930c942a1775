package translate

import (
	"testing"
)

func TestParseBatchResponseStrict(t *testing.T) {
	content := `[{"index": 1, "source": "Open", "translation": "Öffnen"}, {"index": 2, "source": "Close", "translation": "Schließen"}]`
	items, outcome, err := parseBatchResponse(content)
	if err != nil {
		t.Fatalf("parseBatchResponse() error: %v", err)
	}
	if outcome != ParseStrict {
		t.Fatalf("outcome = %v, want strict", outcome)
	}
	if len(items) != 2 || items[1].Translation != "Schließen" {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseBatchResponseMarkdownFences(t *testing.T) {
	content := "Here are the translations:\n```json\n[{\"index\": 1, \"source\": \"Open\", \"translation\": \"Öffnen\"}]\n```\nLet me know if you need more."
	items, outcome, err := parseBatchResponse(content)
	if err != nil {
		t.Fatalf("parseBatchResponse() error: %v", err)
	}
	if outcome != ParseStrict {
		t.Fatalf("outcome = %v, want strict", outcome)
	}
	if len(items) != 1 || items[0].Translation != "Öffnen" {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseBatchResponseRepaired(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"trailing comma", `[{"index": 1, "source": "Open", "translation": "Öffnen"},]`},
		{"bad escape", `[{"index": 1, "source": "Open \[file]", "translation": "Öffnen \[file]"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, outcome, err := parseBatchResponse(tc.content)
			if err != nil {
				t.Fatalf("parseBatchResponse() error: %v", err)
			}
			if outcome != ParseRepaired {
				t.Fatalf("outcome = %v, want repaired", outcome)
			}
			if len(items) != 1 {
				t.Fatalf("got %d items, want 1", len(items))
			}
		})
	}
}

func TestParseBatchResponseExtracted(t *testing.T) {
	// Second item is broken beyond repair; the first must still come out.
	content := `[{"index": 1, "source": "Open", "translation": "Öffnen"}, {"index": 2, "source": "Close", "translation": "Schlie`
	items, outcome, err := parseBatchResponse(content)
	if err != nil {
		t.Fatalf("parseBatchResponse() error: %v", err)
	}
	if outcome != ParseExtracted {
		t.Fatalf("outcome = %v, want extracted", outcome)
	}
	if len(items) != 1 || items[0].Source != "Open" {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseBatchResponseExtractedReversedFields(t *testing.T) {
	// Truncated response whose intact item puts translation before source.
	content := `[{"translation": "Öffnen", "source": "Open", "index": 1}, {"translation": "Schlie`
	items, outcome, err := parseBatchResponse(content)
	if err != nil {
		t.Fatalf("parseBatchResponse() error: %v", err)
	}
	if outcome != ParseExtracted {
		t.Fatalf("outcome = %v, want extracted", outcome)
	}
	if len(items) != 1 || items[0].Source != "Open" || items[0].Translation != "Öffnen" {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Index != 1 {
		t.Fatalf("Index = %d, want 1", items[0].Index)
	}
}

func TestParseBatchResponseExtractedWithoutIndex(t *testing.T) {
	content := `[{"source": "Open", "translation": "Öffnen"}, {"source": "Close", "translation": "Schlie`
	items, outcome, err := parseBatchResponse(content)
	if err != nil {
		t.Fatalf("parseBatchResponse() error: %v", err)
	}
	if outcome != ParseExtracted {
		t.Fatalf("outcome = %v, want extracted", outcome)
	}
	if len(items) != 1 || items[0].Source != "Open" {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseBatchResponseFailed(t *testing.T) {
	_, outcome, err := parseBatchResponse("I cannot translate these strings, sorry.")
	if err == nil {
		t.Fatalf("expected error for unusable response")
	}
	if outcome != ParseFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
}

func TestParseStringArray(t *testing.T) {
	got, err := parseStringArray(`["one", "two"]`, 2)
	if err != nil {
		t.Fatalf("parseStringArray() error: %v", err)
	}
	if got[0] != "one" || got[1] != "two" {
		t.Fatalf("got %v", got)
	}
	if _, err := parseStringArray(`["one"]`, 2); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestParseBoolArray(t *testing.T) {
	got, err := parseBoolArray("```json\n[true, false]\n```", 2)
	if err != nil {
		t.Fatalf("parseBoolArray() error: %v", err)
	}
	if !got[0] || got[1] {
		t.Fatalf("got %v", got)
	}
}
