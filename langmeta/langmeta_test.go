package langmeta

import "testing"

func TestResolveVariantsAndFallbacks(t *testing.T) {
	cases := []struct {
		lang       string
		wantName   string
		wantScript Script
	}{
		{lang: "ru", wantName: "Русский", wantScript: ScriptCyrillic},
		{lang: "pt_BR", wantName: "Português (Brasil)", wantScript: ScriptLatin},
		{lang: "pt-br", wantName: "Português (Brasil)", wantScript: ScriptLatin},
		{lang: "de-AT", wantName: "Deutsch", wantScript: ScriptLatin},
		{lang: "zh_TW", wantName: "繁體中文", wantScript: ScriptHan},
		{lang: "ja", wantName: "日本語", wantScript: ScriptJapanese},
	}
	for _, tc := range cases {
		m := Resolve(tc.lang)
		if m.Name != tc.wantName || m.Script != tc.wantScript {
			t.Fatalf("Resolve(%q) = {%q %q}, want {%q %q}", tc.lang, m.Name, m.Script, tc.wantName, tc.wantScript)
		}
	}

	if m := Resolve("zz-ZZ"); m.Name != "zz-ZZ" || m.Script != ScriptUnknown {
		t.Fatalf("Resolve(zz-ZZ) = %#v, want passthrough with unknown script", m)
	}
}

func TestBaseAndKnown(t *testing.T) {
	if got := Base("pt_BR"); got != "pt" {
		t.Fatalf("Base(pt_BR) = %q, want pt", got)
	}
	if got := Base("ru"); got != "ru" {
		t.Fatalf("Base(ru) = %q, want ru", got)
	}
	if !Known("uk") || !Known("zh_CN") || !Known("es-MX") {
		t.Fatal("Known should accept registry codes and locale variants")
	}
	if Known("xx") {
		t.Fatal("Known(xx) should be false")
	}
	if got := NativeName("ko"); got != "한국어" {
		t.Fatalf("NativeName(ko) = %q", got)
	}
}
