package langdet

import "testing"

func TestScriptDetection(t *testing.T) {
	d := New()
	cases := []struct {
		text string
		lang string
		want Outcome
	}{
		{text: "Датотеку није могуће отворити", lang: "sr", want: Match},
		{text: "ファイルを開けません", lang: "ja", want: Match},
		{text: "파일을 열 수 없습니다", lang: "ko", want: Match},
		{text: "无法打开文件", lang: "zh-CN", want: Match},
		{text: "لا يمكن فتح الملف", lang: "ar", want: Match},
		{text: "ไม่สามารถเปิดไฟล์ได้", lang: "th", want: Match},
		{text: "Αδυναμία ανοίγματος αρχείου", lang: "el", want: Match},
		// Untranslated English returned for a Cyrillic target.
		{text: "Cannot open file", lang: "ru", want: Mismatch},
		// Latin text for a Han target.
		{text: "Cannot open file", lang: "zh", want: Mismatch},
	}
	for _, tc := range cases {
		if got := d.Check(tc.text, tc.lang); got != tc.want {
			t.Fatalf("Check(%q, %s) = %v, want %v", tc.text, tc.lang, got, tc.want)
		}
	}
}

func TestShortStringsAlwaysPass(t *testing.T) {
	d := New()
	for _, s := range []string{"OK", "%1", "...", "", "42"} {
		if got := d.Check(s, "ru"); got != Match {
			t.Fatalf("Check(%q, ru) = %v, want Match for short string", s, got)
		}
	}
}

func TestLatinKeywordStage(t *testing.T) {
	d := New()
	cases := []struct {
		text string
		lang string
	}{
		{text: "Datei konnte nicht geöffnet werden", lang: "de"},
		{text: "Le fichier ne peut pas être ouvert", lang: "fr"},
		{text: "No se puede abrir el archivo", lang: "es"},
		{text: "Nie można otworzyć, plik jest uszkodzony", lang: "pl"},
	}
	for _, tc := range cases {
		if got := d.Check(tc.text, tc.lang); got != Match {
			t.Fatalf("Check(%q, %s) = %v, want Match via keywords", tc.text, tc.lang, got)
		}
	}
}

func TestLatinTargetNonLatinTextIsMismatch(t *testing.T) {
	d := New()
	if got := d.Check("Не удалось открыть файл настроек", "de"); got != Mismatch {
		t.Fatalf("Cyrillic text for de target = %v, want Mismatch", got)
	}
}

func TestUnknownLanguageIsInconclusive(t *testing.T) {
	d := New()
	if got := d.Check("some reasonably long text here", "tlh"); got != Inconclusive {
		t.Fatalf("unknown target = %v, want Inconclusive", got)
	}
}
