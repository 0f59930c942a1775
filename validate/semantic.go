package validate

import (
	"context"
	"fmt"
)

// Judge is the AI collaborator of the semantic stage. Both calls are
// batched: one request covers a whole batch of texts.
type Judge interface {
	// BackTranslate renders texts from fromLang back into toLang.
	// The returned slice must be positionally aligned with texts.
	BackTranslate(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error)
	// JudgeEquivalence answers, per pair, whether the back-translation
	// preserves the meaning of the original source.
	JudgeEquivalence(ctx context.Context, pairs []Pair) ([]bool, error)
}

// Pair is one source/back-translation comparison handed to the judge.
type Pair struct {
	Source          string
	BackTranslation string
}

// Semantic verifies candidate translations by round-tripping them back
// into the source language and asking the judge whether meaning
// survived. When the judge call itself fails, a lexical similarity
// score against the back-translation decides instead.
type Semantic struct {
	Judge      Judge
	SourceLang string
	TargetLang string
	Cutoff     float64
}

// CheckBatch validates candidates against sources. Slices must be the
// same length. A failed back-translation call rejects the whole batch;
// rejected units stay pending and are retried on a later run.
func (s *Semantic) CheckBatch(ctx context.Context, sources, candidates []string) []Verdict {
	verdicts := make([]Verdict, len(candidates))
	if len(candidates) == 0 {
		return verdicts
	}

	backs, err := s.Judge.BackTranslate(ctx, candidates, s.TargetLang, s.SourceLang)
	if err != nil || len(backs) != len(candidates) {
		reason := "back-translation unavailable"
		if err != nil {
			reason = fmt.Sprintf("back-translation: %v", err)
		}
		for i := range verdicts {
			verdicts[i] = fail("%s", reason)
		}
		return verdicts
	}

	pairs := make([]Pair, len(sources))
	for i := range sources {
		pairs[i] = Pair{Source: sources[i], BackTranslation: backs[i]}
	}

	oks, err := s.Judge.JudgeEquivalence(ctx, pairs)
	if err == nil && len(oks) == len(pairs) {
		for i, ok := range oks {
			if ok {
				verdicts[i] = pass()
			} else {
				verdicts[i] = fail("meaning not preserved through back-translation")
			}
			verdicts[i].BackTranslation = backs[i]
		}
		return verdicts
	}

	// Judge unavailable. Score lexical overlap between the original
	// source and the back-translation instead.
	cutoff := s.Cutoff
	if cutoff <= 0 {
		cutoff = DefaultThresholds().SimilarityCutoff
	}
	for i := range pairs {
		sim := Similarity(pairs[i].Source, pairs[i].BackTranslation)
		if sim >= cutoff {
			verdicts[i] = pass()
		} else {
			verdicts[i] = fail("similarity %.2f below %.2f", sim, cutoff)
		}
		verdicts[i].BackTranslation = backs[i]
		verdicts[i].Similarity = sim
	}
	return verdicts
}
