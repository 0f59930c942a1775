package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Response parsing with staged recovery
// ---------------------------------------------------------------------------

// ResponseItem is one translated entry as returned by the model. Index and
// Source echo the request; Source is what reconciliation trusts, Index is
// recorded but never used for identity.
type ResponseItem struct {
	Index       int    `json:"index"`
	Source      string `json:"source"`
	Translation string `json:"translation"`
}

// ParseOutcome records which recovery stage produced a usable batch response.
type ParseOutcome int

const (
	// ParseStrict means the response was valid JSON as-is.
	ParseStrict ParseOutcome = iota
	// ParseRepaired means the response parsed after syntactic cleanup.
	ParseRepaired
	// ParseExtracted means individual items were pattern-matched out of an
	// otherwise unparseable response.
	ParseExtracted
	// ParseFailed means nothing usable could be recovered.
	ParseFailed
)

func (p ParseOutcome) String() string {
	switch p {
	case ParseStrict:
		return "strict"
	case ParseRepaired:
		return "repaired"
	case ParseExtracted:
		return "extracted"
	default:
		return "failed"
	}
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// stripWrapping removes markdown fences and any prose around the outermost
// JSON array.
func stripWrapping(content string) string {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = strings.TrimSpace(m[1])
	}
	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}
	return content
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	// Backslashes not starting a valid JSON escape. Models emit these for
	// sequences like \o or \[ in source strings.
	badEscape = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
)

// repairJSON applies conservative syntactic fixes: trailing commas, smart
// quotes outside strings, and invalid escape sequences.
func repairJSON(content string) string {
	content = trailingComma.ReplaceAllString(content, "$1")
	content = strings.NewReplacer("“", `"`, "”", `"`).Replace(content)
	content = badEscape.ReplaceAllString(content, `\\$1`)
	return content
}

var (
	// objectPattern matches one complete JSON object, tolerating braces
	// inside string values.
	objectPattern    = regexp.MustCompile(`\{(?:[^{}"]|"(?:[^"\\]|\\.)*")*\}`)
	sourceField      = regexp.MustCompile(`"source"\s*:\s*("(?:[^"\\]|\\.)*")`)
	translationField = regexp.MustCompile(`"translation"\s*:\s*("(?:[^"\\]|\\.)*")`)
	indexField       = regexp.MustCompile(`"index"\s*:\s*(\d+)`)
)

// extractItems pattern-matches well-formed items out of a broken response.
// One malformed item does not discard its siblings. Field order inside an
// item does not matter and the index is optional; an item only needs both
// a source and a translation string.
func extractItems(content string) []ResponseItem {
	var items []ResponseItem
	for _, obj := range objectPattern.FindAllString(content, -1) {
		sm := sourceField.FindStringSubmatch(obj)
		tm := translationField.FindStringSubmatch(obj)
		if sm == nil || tm == nil {
			continue
		}
		var item ResponseItem
		if json.Unmarshal([]byte(sm[1]), &item.Source) != nil {
			continue
		}
		if json.Unmarshal([]byte(tm[1]), &item.Translation) != nil {
			continue
		}
		if im := indexField.FindStringSubmatch(obj); im != nil {
			item.Index, _ = strconv.Atoi(im[1])
		}
		items = append(items, item)
	}
	return items
}

// parseBatchResponse recovers translated items from a model response in
// stages: strict JSON, then repaired JSON, then per-item extraction. The
// outcome tag tells the caller how much to trust the result.
func parseBatchResponse(content string) ([]ResponseItem, ParseOutcome, error) {
	stripped := stripWrapping(content)

	var items []ResponseItem
	if err := json.Unmarshal([]byte(stripped), &items); err == nil && len(items) > 0 {
		return items, ParseStrict, nil
	}

	repaired := repairJSON(stripped)
	if err := json.Unmarshal([]byte(repaired), &items); err == nil && len(items) > 0 {
		return items, ParseRepaired, nil
	}

	if items = extractItems(stripped); len(items) > 0 {
		return items, ParseExtracted, nil
	}
	if items = extractItems(repaired); len(items) > 0 {
		return items, ParseExtracted, nil
	}

	return nil, ParseFailed, fmt.Errorf("could not recover translations from response: %s", truncate(content, 300))
}

// parseStringArray parses a plain JSON string-array response (used by the
// back-translation call).
func parseStringArray(content string, expected int) ([]string, error) {
	stripped := stripWrapping(content)

	var out []string
	if err := json.Unmarshal([]byte(stripped), &out); err != nil {
		if err2 := json.Unmarshal([]byte(repairJSON(stripped)), &out); err2 != nil {
			return nil, fmt.Errorf("failed to parse response as JSON string array: %w\nResponse: %s", err, truncate(content, 300))
		}
	}
	if len(out) != expected {
		return nil, fmt.Errorf("got %d strings, expected %d", len(out), expected)
	}
	return out, nil
}

// parseBoolArray parses a JSON boolean-array response (judge and language
// check calls).
func parseBoolArray(content string, expected int) ([]bool, error) {
	stripped := stripWrapping(content)

	var out []bool
	if err := json.Unmarshal([]byte(stripped), &out); err != nil {
		if err2 := json.Unmarshal([]byte(repairJSON(stripped)), &out); err2 != nil {
			return nil, fmt.Errorf("failed to parse response as JSON boolean array: %w\nResponse: %s", err, truncate(content, 300))
		}
	}
	if len(out) != expected {
		return nil, fmt.Errorf("got %d verdicts, expected %d", len(out), expected)
	}
	return out, nil
}
