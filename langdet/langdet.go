// Package langdet decides whether a translated string is actually written
// in the expected target language.
//
// Detection is staged: a cheap rule-based pass over Unicode script ranges
// and curated keyword lists handles the unambiguous cases (CJK, Cyrillic,
// Arabic, Thai, Korean, and common Latin languages); a statistical
// lingua-go pass separates Latin-script languages the rules cannot; what
// remains is Inconclusive and left to the caller's AI fallback.
package langdet

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"

	"github.com/openlocalize/tsloc/langmeta"
)

// Outcome is the tri-state result of rule/statistical detection.
type Outcome int

const (
	// Match: the text is in the target language.
	Match Outcome = iota
	// Mismatch: the text is confidently in some other language.
	Mismatch
	// Inconclusive: rules and statistics cannot tell; ask the AI fallback.
	Inconclusive
)

// minDetectRunes is the minimum number of letters needed before any
// verdict is attempted. Shorter strings ("OK", "%1") carry no signal and
// always pass.
const minDetectRunes = 4

// Detector runs the rule-based and statistical detection stages.
// Building the lingua models is expensive; construct once and reuse.
type Detector struct {
	once   sync.Once
	lingua lingua.LanguageDetector
}

// New returns a Detector. The statistical models are loaded lazily on the
// first Latin-script check.
func New() *Detector {
	return &Detector{}
}

// Check reports whether text appears to be written in targetLang.
func (d *Detector) Check(text, targetLang string) Outcome {
	letters := letterCount(text)
	if letters < minDetectRunes {
		return Match
	}

	meta := langmeta.Resolve(targetLang)
	switch meta.Script {
	case langmeta.ScriptLatin:
		return d.checkLatin(text, targetLang)
	case langmeta.ScriptUnknown:
		return Inconclusive
	default:
		return checkScript(text, meta.Script, letters)
	}
}

// checkScript accepts the text when the dominant share of its letters
// belongs to the target script.
func checkScript(text string, script langmeta.Script, letters int) Outcome {
	table := scriptTables[script]
	if table == nil {
		return Inconclusive
	}

	hits := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		for _, t := range table {
			if unicode.Is(t, r) {
				hits++
				break
			}
		}
	}

	switch {
	case hits*2 >= letters:
		return Match
	case hits == 0:
		return Mismatch
	default:
		return Inconclusive
	}
}

// scriptTables maps script classes to their Unicode range tables.
// Japanese accepts kana plus Han; everything else is a single script.
var scriptTables = map[langmeta.Script][]*unicode.RangeTable{
	langmeta.ScriptHan:        {unicode.Han},
	langmeta.ScriptJapanese:   {unicode.Hiragana, unicode.Katakana, unicode.Han},
	langmeta.ScriptHangul:     {unicode.Hangul},
	langmeta.ScriptCyrillic:   {unicode.Cyrillic},
	langmeta.ScriptArabic:     {unicode.Arabic},
	langmeta.ScriptHebrew:     {unicode.Hebrew},
	langmeta.ScriptThai:       {unicode.Thai},
	langmeta.ScriptDevanagari: {unicode.Devanagari},
	langmeta.ScriptGreek:      {unicode.Greek},
}

// checkLatin first tries the curated keyword lists, then falls back to the
// lingua statistical detector.
func (d *Detector) checkLatin(text, targetLang string) Outcome {
	base := langmeta.Base(targetLang)

	// A Latin-script target translated into a non-Latin script is a
	// clear mismatch regardless of keywords.
	latin, other := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Latin, r) {
			latin++
		} else {
			other++
		}
	}
	if other > latin {
		return Mismatch
	}

	if words, ok := keywordLists[base]; ok {
		if containsKeyword(text, words) {
			return Match
		}
	}

	return d.statistical(text, base)
}

// statistical runs lingua-go over the Latin-language model set.
func (d *Detector) statistical(text, base string) Outcome {
	d.once.Do(func() {
		d.lingua = lingua.NewLanguageDetectorBuilder().
			FromLanguages(linguaLanguages...).
			Build()
	})

	detected, ok := d.lingua.DetectLanguageOf(text)
	if !ok {
		return Inconclusive
	}
	code := strings.ToLower(detected.IsoCode639_1().String())
	if code == base {
		return Match
	}
	// lingua frequently confuses close relatives on short strings
	// (bs/hr/sr, cs/sk, es/pt). Treat near misses as inconclusive so the
	// AI fallback has the final word instead of rejecting outright.
	if related, ok := confusable[base]; ok && related[code] {
		return Inconclusive
	}
	return Mismatch
}

var linguaLanguages = []lingua.Language{
	lingua.English, lingua.German, lingua.French, lingua.Spanish,
	lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Polish,
	lingua.Czech, lingua.Slovak, lingua.Romanian, lingua.Hungarian,
	lingua.Turkish, lingua.Swedish, lingua.Danish, lingua.Finnish,
	lingua.Croatian, lingua.Slovene, lingua.Lithuanian, lingua.Latvian,
	lingua.Estonian, lingua.Indonesian, lingua.Vietnamese, lingua.Albanian,
}

var confusable = map[string]map[string]bool{
	"bs": {"hr": true, "sr": true, "sl": true},
	"hr": {"bs": true, "sr": true, "sl": true},
	"sl": {"hr": true, "bs": true},
	"cs": {"sk": true},
	"sk": {"cs": true},
	"es": {"pt": true, "it": true},
	"pt": {"es": true, "it": true},
	"it": {"es": true, "pt": true},
	"da": {"no": true, "sv": true, "nb": true},
	"no": {"da": true, "sv": true},
	"nb": {"da": true, "sv": true},
	"sv": {"da": true, "no": true},
	"id": {"ms": true},
	"ms": {"id": true},
}

// keywordLists holds high-frequency function words per Latin language.
// A single hit is a strong positive signal for UI-sized strings; absence
// proves nothing, so misses fall through to the statistical stage.
var keywordLists = map[string][]string{
	"de": {"der", "die", "das", "und", "nicht", "eine", "ist", "öffnen", "speichern", "datei", "beenden", "fehler"},
	"fr": {"le", "la", "les", "une", "est", "et", "ne", "pas", "fichier", "ouvrir", "enregistrer", "erreur"},
	"es": {"el", "los", "una", "es", "y", "no", "archivo", "abrir", "guardar", "cancelar", "error"},
	"it": {"il", "lo", "gli", "una", "è", "e", "non", "file", "apri", "salva", "annulla", "errore"},
	"pt": {"o", "os", "uma", "é", "e", "não", "arquivo", "ficheiro", "abrir", "salvar", "guardar", "erro"},
	"nl": {"de", "het", "een", "is", "en", "niet", "bestand", "openen", "opslaan", "annuleren", "fout"},
	"pl": {"nie", "jest", "i", "plik", "otwórz", "zapisz", "anuluj", "błąd", "się"},
	"cs": {"ne", "je", "a", "soubor", "otevřít", "uložit", "zrušit", "chyba"},
	"tr": {"bir", "ve", "değil", "dosya", "aç", "kaydet", "iptal", "hata"},
	"sv": {"en", "ett", "är", "och", "inte", "fil", "öppna", "spara", "avbryt", "fel"},
	"vi": {"không", "và", "là", "tệp", "mở", "lưu", "hủy", "lỗi"},
	"id": {"tidak", "dan", "adalah", "berkas", "buka", "simpan", "batal", "kesalahan"},
	"ro": {"nu", "este", "și", "fișier", "deschide", "salvează", "anulează", "eroare"},
	"hu": {"nem", "és", "egy", "fájl", "megnyitás", "mentés", "mégse", "hiba"},
	"fi": {"ei", "ja", "on", "tiedosto", "avaa", "tallenna", "peruuta", "virhe"},
}

func containsKeyword(text string, words []string) bool {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
