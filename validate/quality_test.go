package validate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestQualityHeuristics(t *testing.T) {
	th := DefaultThresholds()
	longSource := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 2)

	cases := []struct {
		name        string
		source      string
		translation string
		ok          bool
	}{
		{"good translation", "Open file", "Datei öffnen", true},
		{"empty", "Open file", "", false},
		{"whitespace only", "Open file", "   ", false},
		{"punctuation only", "Open file", "???", false},
		{"symbols only", "Open file", "!!! --- ...", false},
		{"length explosion", "Hi", strings.Repeat("sehr ", 10), false},
		{"repeat run", "Open file", strings.Repeat("a", 25), false},
		{"single char short is fine", "No", "Ne", true},
		{"replacement char", "Open file", "Datei � öffnen", false},
		{"control char", "Open file", "Datei\x00öffnen", false},
		{"tiny translation of long source", longSource, "Ok", false},
		{"echo of long source", longSource, longSource, false},
		{"echo of short source allowed", "OK", "OK", true},
		{"newlines allowed", "Line one\nLine two", "Zeile eins\nZeile zwei", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Quality(tc.source, tc.translation, th)
			if v.OK != tc.ok {
				t.Fatalf("Quality(%q, %q).OK = %v, want %v (reason %q)",
					tc.source, tc.translation, v.OK, tc.ok, v.Reason)
			}
			if !v.OK && v.Reason == "" {
				t.Fatalf("rejected verdict carries no reason")
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("open the file", "open the file"); s < 0.99 {
		t.Fatalf("identical texts similarity = %.2f, want ~1", s)
	}
	if s := Similarity("open the file", "Open the file."); s < 0.9 {
		t.Fatalf("case/punct variant similarity = %.2f, want high", s)
	}
	same := Similarity("could not open the selected file", "the selected file could not be opened")
	diff := Similarity("could not open the selected file", "printer out of paper")
	if same <= diff {
		t.Fatalf("paraphrase %.2f not above unrelated %.2f", same, diff)
	}
	if diff >= 0.35 {
		t.Fatalf("unrelated texts similarity = %.2f, want below cutoff", diff)
	}
}

type fakeJudge struct {
	backs    []string
	backErr  error
	verdicts []bool
	judgeErr error
}

func (f *fakeJudge) BackTranslate(_ context.Context, texts []string, _, _ string) ([]string, error) {
	if f.backErr != nil {
		return nil, f.backErr
	}
	return f.backs, nil
}

func (f *fakeJudge) JudgeEquivalence(_ context.Context, pairs []Pair) ([]bool, error) {
	if f.judgeErr != nil {
		return nil, f.judgeErr
	}
	return f.verdicts, nil
}

func TestSemanticJudgeVerdicts(t *testing.T) {
	j := &fakeJudge{
		backs:    []string{"Open file", "Close everything now"},
		verdicts: []bool{true, false},
	}
	s := &Semantic{Judge: j, SourceLang: "en", TargetLang: "de"}
	got := s.CheckBatch(context.Background(), []string{"Open file", "Save"}, []string{"Datei öffnen", "Jetzt alles schließen"})
	if !got[0].OK || got[1].OK {
		t.Fatalf("verdicts = [%v %v], want [true false]", got[0].OK, got[1].OK)
	}
	if got[0].BackTranslation != "Open file" {
		t.Fatalf("back-translation evidence = %q", got[0].BackTranslation)
	}
}

func TestSemanticSimilarityFallback(t *testing.T) {
	j := &fakeJudge{
		backs:    []string{"open the file", "banana printer cloud"},
		judgeErr: errors.New("judge offline"),
	}
	s := &Semantic{Judge: j, SourceLang: "en", TargetLang: "de"}
	got := s.CheckBatch(context.Background(), []string{"open the file", "save the document"}, []string{"x", "y"})
	if !got[0].OK {
		t.Fatalf("near-identical back-translation rejected: %s", got[0].Reason)
	}
	if got[1].OK {
		t.Fatalf("unrelated back-translation accepted (similarity %.2f)", got[1].Similarity)
	}
}

func TestSemanticBackTranslationFailureRejectsBatch(t *testing.T) {
	j := &fakeJudge{backErr: errors.New("network down")}
	s := &Semantic{Judge: j, SourceLang: "en", TargetLang: "de"}
	got := s.CheckBatch(context.Background(), []string{"a", "b"}, []string{"x", "y"})
	for i, v := range got {
		if v.OK {
			t.Fatalf("verdict %d OK despite back-translation failure", i)
		}
	}
}
