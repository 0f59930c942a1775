package translate

import (
	"strings"
	"time"

	"github.com/openlocalize/tsloc/langmeta"
	"github.com/openlocalize/tsloc/validate"
)

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls the translation pipeline behavior.
type Options struct {
	// Provider is the AI provider configuration.
	Provider Provider
	// SourceLanguage is the catalog source language code (default "en").
	SourceLanguage string
	// BatchSize is how many units to translate per API call.
	BatchSize int
	// MaxConcurrentFiles caps how many catalogs are processed at once.
	MaxConcurrentFiles int
	// ForceSerial disables cross-file parallelism entirely.
	ForceSerial bool
	// RateLimitCount/RateLimitWindow bound request frequency across all
	// workers (count requests per window; zero count disables the gate).
	RateLimitCount  int
	RateLimitWindow time.Duration
	// BatchDelay is the pause between consecutive batches of one file.
	BatchDelay time.Duration
	// Timeout is the per-request timeout (overrides provider timeout if set).
	Timeout time.Duration
	// MaxRetries is the maximum number of retries on rate limit (429). Default: 3.
	MaxRetries int
	// KeepUnfinished leaves the unfinished marker on written translations
	// so a human reviewer can confirm them later.
	KeepUnfinished bool
	// Revalidate re-checks already finished translations instead of
	// translating pending ones.
	Revalidate bool
	// SkipLanguageCheck disables the target-language verification stage.
	SkipLanguageCheck bool
	// Semantic enables back-translation verification of candidates.
	Semantic bool
	// Thresholds tunes the quality heuristics; zero value means defaults.
	Thresholds validate.Thresholds
	// SystemPrompt overrides the default translation system prompt.
	SystemPrompt string
	// OnProgress is called after each batch is reconciled and persisted.
	OnProgress func(path string, done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 25
}

func (o *Options) effectiveMaxConcurrentFiles() int {
	if o.ForceSerial {
		return 1
	}
	if o.MaxConcurrentFiles > 0 {
		return o.MaxConcurrentFiles
	}
	return 3
}

func (o *Options) effectiveSourceLanguage() string {
	if o.SourceLanguage != "" {
		return o.SourceLanguage
	}
	return "en"
}

func (o *Options) effectiveThresholds() validate.Thresholds {
	if o.Thresholds == (validate.Thresholds{}) {
		return validate.DefaultThresholds()
	}
	return o.Thresholds
}

// resolvedPrompt returns the translation system prompt with {{targetLang}}
// replaced by the language display name.
func (o *Options) resolvedPrompt(lang string) string {
	prompt := o.SystemPrompt
	if prompt == "" {
		prompt = getPrompt("default")
	}
	return strings.ReplaceAll(prompt, "{{targetLang}}", langmeta.Resolve(lang).Name)
}
