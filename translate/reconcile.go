package translate

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/openlocalize/tsloc/tsfile"
)

// ---------------------------------------------------------------------------
// Response-to-request reconciliation
// ---------------------------------------------------------------------------

// Unit is one pending message offered for translation, carrying enough
// catalog context for the prompt and a handle back to the message itself.
type Unit struct {
	Context string
	Source  string
	Comment string
	Hint    string
	Msg     *tsfile.Message
}

// Mapping records the reconciliation result for one requested unit. A unit
// with Valid=false stays pending; Reason says why.
type Mapping struct {
	UnitIndex     int
	ResponseIndex int
	Valid         bool
	Reason        string
}

// normalizeSource canonicalizes a string for source comparison: NFC, trimmed,
// with typographic quotes, dashes, and exotic spaces unified. Model echoes
// routinely drift in exactly these characters.
func normalizeSource(s string) string {
	s = norm.NFC.String(s)
	s = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'",
		"“", `"`, "”", `"`, "„", `"`,
		"–", "-", "—", "-", "−", "-",
		" ", " ", " ", " ", " ", " ",
	).Replace(s)
	return strings.TrimSpace(s)
}

// Reconcile aligns response items with the requested units. The fast path is
// positional: item i belongs to unit i while every echoed source matches. At
// the first mismatch positional trust ends and the remaining items are
// matched by source content only, each consuming exactly one still-unmatched
// unit with that source. Ambiguous and unmatched items are dropped; their
// units are reported invalid and remain untranslated. A translation is never
// attached to a unit whose source it does not match.
func Reconcile(units []Unit, items []ResponseItem) []Mapping {
	mappings := make([]Mapping, len(units))
	for i := range mappings {
		mappings[i] = Mapping{UnitIndex: i, ResponseIndex: -1, Reason: "no response item"}
	}

	normUnit := make([]string, len(units))
	for i, u := range units {
		normUnit[i] = normalizeSource(u.Source)
	}

	// Units per normalized source, for the content-based path.
	bySource := make(map[string][]int, len(units))
	for i, key := range normUnit {
		bySource[key] = append(bySource[key], i)
	}

	taken := make([]bool, len(units))
	used := make([]bool, len(items))

	// Positional fast path with echoed-source verification. The first
	// mismatch ends it: position is untrustworthy from that point on, so
	// everything after the verified prefix goes through the content remap.
	n := len(items)
	if len(units) < n {
		n = len(units)
	}
	for i := 0; i < n; i++ {
		if normalizeSource(items[i].Source) != normUnit[i] {
			break
		}
		mappings[i] = Mapping{UnitIndex: i, ResponseIndex: i, Valid: true}
		taken[i] = true
		used[i] = true
	}

	// Content-based remap for everything left over.
	for ri, item := range items {
		if used[ri] {
			continue
		}
		key := normalizeSource(item.Source)
		candidate := -1
		for _, ui := range bySource[key] {
			if taken[ui] {
				continue
			}
			if candidate >= 0 {
				// Ambiguous: two unmatched units share this source.
				candidate = -2
				break
			}
			candidate = ui
		}
		switch {
		case candidate >= 0:
			mappings[candidate] = Mapping{UnitIndex: candidate, ResponseIndex: ri, Valid: true}
			taken[candidate] = true
			used[ri] = true
		case candidate == -2:
			for _, ui := range bySource[key] {
				if !taken[ui] {
					mappings[ui].Reason = "ambiguous source match"
				}
			}
		}
	}

	// Refine the default reason by content, not position: a unit whose
	// source the response never echoed fell to a mismatch or omission, one
	// whose source was echoed but already consumed fell to a count
	// shortfall among duplicates.
	echoed := make(map[string]bool, len(items))
	for _, item := range items {
		echoed[normalizeSource(item.Source)] = true
	}
	for i := range mappings {
		if mappings[i].Valid || mappings[i].Reason != "no response item" {
			continue
		}
		if echoed[normUnit[i]] {
			mappings[i].Reason = "source echoed fewer times than requested"
		} else {
			mappings[i].Reason = "no response item echoed this source"
		}
	}

	return mappings
}
