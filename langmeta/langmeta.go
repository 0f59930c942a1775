// Package langmeta provides the canonical language metadata registry
// (native names, emoji flags, and writing-script classes) shared by the
// translation pipeline, the language detector, and the CLI UI.
package langmeta

import "strings"

// Script classifies the dominant writing system of a language. The
// language detector keys its rule-based stage on this value.
type Script string

const (
	ScriptLatin      Script = "latin"
	ScriptCyrillic   Script = "cyrillic"
	ScriptHan        Script = "han"
	ScriptJapanese   Script = "japanese"
	ScriptHangul     Script = "hangul"
	ScriptArabic     Script = "arabic"
	ScriptHebrew     Script = "hebrew"
	ScriptThai       Script = "thai"
	ScriptDevanagari Script = "devanagari"
	ScriptGreek      Script = "greek"
	ScriptUnknown    Script = ""
)

// Meta describes language display and detection metadata.
type Meta struct {
	Name   string
	Flag   string
	Script Script
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "العربية", Flag: "🇸🇦", Script: ScriptArabic},
	"az":    {Name: "Azərbaycanca", Flag: "🇦🇿", Script: ScriptLatin},
	"be":    {Name: "Беларуская", Flag: "🇧🇾", Script: ScriptCyrillic},
	"bg":    {Name: "Български", Flag: "🇧🇬", Script: ScriptCyrillic},
	"bs":    {Name: "Bosanski", Flag: "🇧🇦", Script: ScriptLatin},
	"ca":    {Name: "Català", Flag: "🇪🇸", Script: ScriptLatin},
	"cs":    {Name: "Čeština", Flag: "🇨🇿", Script: ScriptLatin},
	"da":    {Name: "Dansk", Flag: "🇩🇰", Script: ScriptLatin},
	"de":    {Name: "Deutsch", Flag: "🇩🇪", Script: ScriptLatin},
	"el":    {Name: "Ελληνικά", Flag: "🇬🇷", Script: ScriptGreek},
	"en":    {Name: "English", Flag: "🇺🇸", Script: ScriptLatin},
	"es":    {Name: "Español", Flag: "🇪🇸", Script: ScriptLatin},
	"et":    {Name: "Eesti", Flag: "🇪🇪", Script: ScriptLatin},
	"fa":    {Name: "فارسی", Flag: "🇮🇷", Script: ScriptArabic},
	"fi":    {Name: "Suomi", Flag: "🇫🇮", Script: ScriptLatin},
	"fr":    {Name: "Français", Flag: "🇫🇷", Script: ScriptLatin},
	"he":    {Name: "עברית", Flag: "🇮🇱", Script: ScriptHebrew},
	"hi":    {Name: "हिन्दी", Flag: "🇮🇳", Script: ScriptDevanagari},
	"hr":    {Name: "Hrvatski", Flag: "🇭🇷", Script: ScriptLatin},
	"hu":    {Name: "Magyar", Flag: "🇭🇺", Script: ScriptLatin},
	"id":    {Name: "Bahasa Indonesia", Flag: "🇮🇩", Script: ScriptLatin},
	"it":    {Name: "Italiano", Flag: "🇮🇹", Script: ScriptLatin},
	"ja":    {Name: "日本語", Flag: "🇯🇵", Script: ScriptJapanese},
	"kk":    {Name: "Қазақ тілі", Flag: "🇰🇿", Script: ScriptCyrillic},
	"ko":    {Name: "한국어", Flag: "🇰🇷", Script: ScriptHangul},
	"lt":    {Name: "Lietuvių", Flag: "🇱🇹", Script: ScriptLatin},
	"lv":    {Name: "Latviešu", Flag: "🇱🇻", Script: ScriptLatin},
	"mk":    {Name: "Македонски", Flag: "🇲🇰", Script: ScriptCyrillic},
	"mr":    {Name: "मराठी", Flag: "🇮🇳", Script: ScriptDevanagari},
	"ms":    {Name: "Bahasa Melayu", Flag: "🇲🇾", Script: ScriptLatin},
	"nb":    {Name: "Norsk bokmål", Flag: "🇳🇴", Script: ScriptLatin},
	"ne":    {Name: "नेपाली", Flag: "🇳🇵", Script: ScriptDevanagari},
	"nl":    {Name: "Nederlands", Flag: "🇳🇱", Script: ScriptLatin},
	"no":    {Name: "Norsk", Flag: "🇳🇴", Script: ScriptLatin},
	"pl":    {Name: "Polski", Flag: "🇵🇱", Script: ScriptLatin},
	"pt":    {Name: "Português", Flag: "🇵🇹", Script: ScriptLatin},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷", Script: ScriptLatin},
	"ro":    {Name: "Română", Flag: "🇷🇴", Script: ScriptLatin},
	"ru":    {Name: "Русский", Flag: "🇷🇺", Script: ScriptCyrillic},
	"sk":    {Name: "Slovenčina", Flag: "🇸🇰", Script: ScriptLatin},
	"sl":    {Name: "Slovenščina", Flag: "🇸🇮", Script: ScriptLatin},
	"sq":    {Name: "Shqip", Flag: "🇦🇱", Script: ScriptLatin},
	"sr":    {Name: "Српски", Flag: "🇷🇸", Script: ScriptCyrillic},
	"sv":    {Name: "Svenska", Flag: "🇸🇪", Script: ScriptLatin},
	"th":    {Name: "ไทย", Flag: "🇹🇭", Script: ScriptThai},
	"tr":    {Name: "Türkçe", Flag: "🇹🇷", Script: ScriptLatin},
	"uk":    {Name: "Українська", Flag: "🇺🇦", Script: ScriptCyrillic},
	"ur":    {Name: "اردو", Flag: "🇵🇰", Script: ScriptArabic},
	"uz":    {Name: "O'zbek", Flag: "🇺🇿", Script: ScriptLatin},
	"vi":    {Name: "Tiếng Việt", Flag: "🇻🇳", Script: ScriptLatin},
	"zh":    {Name: "中文", Flag: "🇨🇳", Script: ScriptHan},
	"zh-CN": {Name: "简体中文", Flag: "🇨🇳", Script: ScriptHan},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼", Script: ScriptHan},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Base returns the base language code: "pt_BR" and "pt-BR" both yield "pt".
func Base(lang string) string {
	normalized := canonicalize(lang)
	if idx := strings.IndexByte(normalized, '-'); idx > 0 {
		return normalized[:idx]
	}
	return normalized
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Flag: "", Script: ScriptUnknown}
}

// Known reports whether the language code (or its base) is in the registry.
func Known(lang string) bool {
	if _, ok := Registry[lang]; ok {
		return true
	}
	if _, ok := Registry[canonicalize(lang)]; ok {
		return true
	}
	_, ok := Registry[Base(lang)]
	return ok
}

// NativeName returns the native display name for a language code,
// falling back to the code itself.
func NativeName(lang string) string {
	return Resolve(lang).Name
}
