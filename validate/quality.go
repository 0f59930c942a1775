// Package validate implements the verification gates a candidate
// translation must clear before it is written back to the catalog:
// quality heuristics against degenerate model output, and optional
// semantic verification via back-translation.
package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Verdict is the outcome of one validation gate, with whatever evidence
// the gate collected.
type Verdict struct {
	OK     bool
	Reason string

	// Evidence, populated by the gate that produced the verdict.
	Language        string
	BackTranslation string
	Similarity      float64
}

func pass() Verdict { return Verdict{OK: true} }

func fail(format string, args ...any) Verdict {
	return Verdict{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// Thresholds holds the tunable limits of the quality heuristics.
// These are tuning parameters, not invariants; override via config.
type Thresholds struct {
	// MaxLengthRatio rejects translations longer than ratio × source.
	MaxLengthRatio float64
	// MaxRepeatRun rejects a single character repeated this many times in a row.
	MaxRepeatRun int
	// MaxSingleCharLen rejects strings of one unique character longer than this.
	MaxSingleCharLen int
	// LongSourceLen and ShortTranslationLen together reject implausibly
	// short translations of long sources.
	LongSourceLen       int
	ShortTranslationLen int
	// EchoMinLen rejects translations identical to a source at least this long.
	EchoMinLen int
	// SimilarityCutoff is the semantic-stage lexical fallback threshold.
	SimilarityCutoff float64
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxLengthRatio:      10,
		MaxRepeatRun:        20,
		MaxSingleCharLen:    10,
		LongSourceLen:       50,
		ShortTranslationLen: 2,
		EchoMinLen:          20,
		SimilarityCutoff:    0.35,
	}
}

// Quality runs the heuristic gates over a candidate translation.
// Any firing heuristic rejects the candidate.
func Quality(source, translation string, th Thresholds) Verdict {
	trimmed := strings.TrimSpace(translation)
	if trimmed == "" {
		return fail("empty translation")
	}

	if isPunctuationOnly(trimmed) {
		return fail("translation is punctuation/symbols only")
	}

	srcLen := utf8.RuneCountInString(source)
	transLen := utf8.RuneCountInString(translation)

	if th.MaxLengthRatio > 0 && srcLen > 0 && float64(transLen) > th.MaxLengthRatio*float64(srcLen) {
		return fail("translation %d runes exceeds %.0f× source length %d", transLen, th.MaxLengthRatio, srcLen)
	}

	if run, r := longestRun(translation); th.MaxRepeatRun > 0 && run >= th.MaxRepeatRun {
		return fail("character %q repeated %d times", r, run)
	}

	if containsGarbageRunes(translation) {
		return fail("translation contains control or replacement characters")
	}

	if th.MaxSingleCharLen > 0 && transLen > th.MaxSingleCharLen && uniqueRunes(trimmed) == 1 {
		return fail("translation is a single repeated character of length %d", transLen)
	}

	if th.LongSourceLen > 0 && srcLen > th.LongSourceLen && transLen <= th.ShortTranslationLen {
		return fail("source %d runes but translation only %d", srcLen, transLen)
	}

	if th.EchoMinLen > 0 && srcLen >= th.EchoMinLen && strings.TrimSpace(source) == trimmed {
		return fail("translation merely echoes the source")
	}

	return pass()
}

func isPunctuationOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func longestRun(s string) (int, rune) {
	var (
		best, cur  int
		bestR, prev rune
	)
	for _, r := range s {
		if r == prev {
			cur++
		} else {
			cur = 1
			prev = r
		}
		if cur > best {
			best = cur
			bestR = r
		}
	}
	return best, bestR
}

func uniqueRunes(s string) int {
	seen := make(map[rune]bool)
	for _, r := range s {
		seen[r] = true
	}
	return len(seen)
}

func containsGarbageRunes(s string) bool {
	for _, r := range s {
		if r == utf8.RuneError || r == '�' {
			return true
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
