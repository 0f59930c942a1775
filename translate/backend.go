package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openlocalize/tsloc/langmeta"
	"github.com/openlocalize/tsloc/validate"
)

// ---------------------------------------------------------------------------
// Translation backend
// ---------------------------------------------------------------------------

// Backend turns a batch of units into response items. Implementations other
// than the AI one exist only for tests.
type Backend interface {
	TranslateBatch(ctx context.Context, units []Unit, targetLang string) ([]ResponseItem, ParseOutcome, error)
}

// aiBackend sends batches to the configured provider and recovers the
// response through the staged parser.
type aiBackend struct {
	opts Options
	rl   *rateLimitState
	gate *rateGate
}

func newAIBackend(opts Options, rl *rateLimitState, gate *rateGate) *aiBackend {
	return &aiBackend{opts: opts, rl: rl, gate: gate}
}

// buildBatchPrompt renders the units as a numbered request. Context names and
// developer comments ride along so the model can disambiguate short strings.
func buildBatchPrompt(units []Unit) string {
	var b strings.Builder
	b.WriteString("Translate these entries:\n\n")
	for i, u := range units {
		fmt.Fprintf(&b, "%d. %q\n", i+1, u.Source)
		if u.Context != "" {
			fmt.Fprintf(&b, "   (context: %s)\n", u.Context)
		}
		if u.Comment != "" {
			fmt.Fprintf(&b, "   (disambiguation: %s)\n", u.Comment)
		}
		if u.Hint != "" {
			fmt.Fprintf(&b, "   (developer note: %s)\n", u.Hint)
		}
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d objects.", len(units))
	return b.String()
}

func (a *aiBackend) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := a.gate.wait(ctx); err != nil {
		return "", err
	}
	prov := a.opts.Provider
	prov.Timeout = a.opts.effectiveTimeout()
	return callProvider(ctx, prov, systemPrompt, userPrompt, a.rl, a.opts.effectiveMaxRetries(), a.opts.Verbose)
}

func (a *aiBackend) TranslateBatch(ctx context.Context, units []Unit, targetLang string) ([]ResponseItem, ParseOutcome, error) {
	text, err := a.call(ctx, a.opts.resolvedPrompt(targetLang), buildBatchPrompt(units))
	if err != nil {
		return nil, ParseFailed, err
	}
	return parseBatchResponse(text)
}

// ---------------------------------------------------------------------------
// AI judge for the semantic stage
// ---------------------------------------------------------------------------

// aiJudge implements validate.Judge on top of the same provider plumbing.
type aiJudge struct {
	backend *aiBackend
}

func (j *aiJudge) BackTranslate(ctx context.Context, texts []string, fromLang, toLang string) ([]string, error) {
	prompt := getPrompt("backtranslate")
	prompt = strings.ReplaceAll(prompt, "{{sourceLang}}", langmeta.Resolve(fromLang).Name)
	prompt = strings.ReplaceAll(prompt, "{{targetLang}}", langmeta.Resolve(toLang).Name)

	var b strings.Builder
	b.WriteString("Translate these strings:\n\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %q\n", i+1, t)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d strings.", len(texts))

	text, err := j.backend.call(ctx, prompt, b.String())
	if err != nil {
		return nil, err
	}
	return parseStringArray(text, len(texts))
}

func (j *aiJudge) JudgeEquivalence(ctx context.Context, pairs []validate.Pair) ([]bool, error) {
	var b strings.Builder
	b.WriteString("Compare these pairs:\n\n")
	for i, p := range pairs {
		fmt.Fprintf(&b, "%d. original: %q\n   candidate: %q\n", i+1, p.Source, p.BackTranslation)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d booleans.", len(pairs))

	text, err := j.backend.call(ctx, getPrompt("judge"), b.String())
	if err != nil {
		return nil, err
	}
	return parseBoolArray(text, len(pairs))
}

// ---------------------------------------------------------------------------
// AI fallback for inconclusive language detection
// ---------------------------------------------------------------------------

// checkLanguageAI asks the provider whether each text is in targetLang. Used
// only for units the heuristic and statistical detectors could not decide.
func checkLanguageAI(ctx context.Context, backend *aiBackend, texts []string, targetLang string) ([]bool, error) {
	prompt := strings.ReplaceAll(getPrompt("langcheck"), "{{targetLang}}", langmeta.Resolve(targetLang).Name)

	var b strings.Builder
	b.WriteString("Classify these strings:\n\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %q\n", i+1, t)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d booleans.", len(texts))

	text, err := backend.call(ctx, prompt, b.String())
	if err != nil {
		return nil, err
	}
	return parseBoolArray(text, len(texts))
}
