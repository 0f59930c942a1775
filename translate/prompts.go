package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openlocalize/tsloc/settings"
)

// ---------------------------------------------------------------------------
// System prompts configuration
// ---------------------------------------------------------------------------

// PromptsConfig holds all system prompts loaded from prompts.json
type PromptsConfig struct {
	Prompts map[string]string `json:"prompts"`
}

// globalPrompts holds the loaded prompts configuration
var globalPrompts *PromptsConfig

// LoadPromptsFromFile loads system prompts from a JSON file.
// If the file doesn't exist, it returns nil (embedded defaults apply).
func LoadPromptsFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var config PromptsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}

	globalPrompts = &config
	return nil
}

// defaultPromptsMap returns all built-in system prompts as a map.
func defaultPromptsMap() map[string]string {
	return map[string]string{
		"default":       DefaultSystemPrompt,
		"backtranslate": BackTranslateSystemPrompt,
		"judge":         JudgeSystemPrompt,
		"langcheck":     LangCheckSystemPrompt,
	}
}

// createDefaultPromptsFile writes the built-in prompts to path as formatted JSON.
func createDefaultPromptsFile(path string) error {
	config := PromptsConfig{
		Prompts: defaultPromptsMap(),
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling default prompts: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating prompts directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default prompts file: %w", err)
	}
	return nil
}

// LoadPromptsFromDefaultLocations tries to load prompts from the user data
// directory ($XDG_DATA_HOME/tsloc/prompts.json), creating the file with the
// built-in defaults when missing. Returns the path of the loaded file.
func LoadPromptsFromDefaultLocations() (string, error) {
	path, err := settings.PromptsFilePath()
	if err != nil {
		return "", fmt.Errorf("cannot determine prompts file path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultPromptsFile(path); err != nil {
			return "", fmt.Errorf("creating default prompts file: %w", err)
		}
	}

	if err := LoadPromptsFromFile(path); err != nil {
		return "", err
	}

	if globalPrompts != nil {
		return path, nil
	}

	return "", nil
}

// getPrompt returns the system prompt for a given prompt type, preferring
// user-loaded prompts over the embedded defaults.
func getPrompt(promptType string) string {
	if globalPrompts != nil {
		if prompt, ok := globalPrompts.Prompts[promptType]; ok && prompt != "" {
			return prompt
		}
	}

	switch promptType {
	case "backtranslate":
		return BackTranslateSystemPrompt
	case "judge":
		return JudgeSystemPrompt
	case "langcheck":
		return LangCheckSystemPrompt
	default:
		return DefaultSystemPrompt
	}
}

// ---------------------------------------------------------------------------
// Default system prompts
// ---------------------------------------------------------------------------

// DefaultSystemPrompt drives batch translation of UI strings from TS catalogs.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a desktop application.

CONTEXT AWARENESS:
- The audience is software users
- Tone: professional yet approachable, clear and concise
- Use IT/software terminology that is standard in {{targetLang}} tech community
- Each entry may carry a context name and a developer comment; use them to disambiguate short strings

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in the target language, not word-for-word
- Use idiomatic expressions natural to {{targetLang}}, not literal translations
- Adapt sentence structure to match {{targetLang}} conventions
- Keep brand names and proper nouns unchanged
- Do NOT translate technical terms that are standard in English (unless they have established translations)

TECHNICAL REQUIREMENTS:
- Preserve all placeholders exactly as-is (%1, %2, %n, %s, {name}, &shortcuts).
- Preserve leading/trailing whitespace, newlines, ellipses, and punctuation patterns.
- Return ONLY a JSON array of objects, one per input entry, in the same order:
  [{"index": 1, "source": "<the exact source string>", "translation": "<your translation>"}, ...]
- The "source" field must repeat the input string byte-for-byte.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// BackTranslateSystemPrompt renders candidate translations back into the
// source language for semantic verification.
const BackTranslateSystemPrompt = `You are a professional translator. Translate each input string from {{sourceLang}} into {{targetLang}} as literally as the target language allows, without improving or summarizing.

TECHNICAL REQUIREMENTS:
- Preserve all placeholders exactly as-is (%1, %2, %n, %s, {name}).
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// JudgeSystemPrompt decides whether back-translations preserve meaning.
const JudgeSystemPrompt = `You are a localization reviewer. For each pair of strings, decide whether the second string preserves the essential meaning of the first. Minor rewording, synonyms, and grammatical restructuring are acceptable; lost information, contradictions, or unrelated content are not.

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of booleans, one for each input pair, in the same order.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// LangCheckSystemPrompt answers whether texts are written in a given language.
const LangCheckSystemPrompt = `You are a language identification assistant. For each input string, answer whether it is written in {{targetLang}}. Strings made of placeholders, numbers, or proper nouns only count as yes.

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of booleans, one for each input string, in the same order.
- Return ONLY the JSON array, no explanations or markdown code blocks.`
