package tsfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTS = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE TS>
<TS version="2.1" language="de_DE" sourcelanguage="en">
<context>
    <name>MainWindow</name>
    <message>
        <source>Open File</source>
        <translation type="unfinished"></translation>
    </message>
    <message>
        <source>Save</source>
        <comment>toolbar button</comment>
        <translation>Speichern</translation>
    </message>
    <message>
        <source>Close</source>
        <translation type="unfinished">Schlie&#xdf;en?</translation>
    </message>
</context>
<context>
    <name>Dialog</name>
    <message>
        <source>Cancel &amp; Quit</source>
        <extracomment>confirmation dialog</extracomment>
        <translation type="unfinished"></translation>
    </message>
    <message numerus="yes">
        <source>%n file(s)</source>
        <translation type="unfinished">
            <numerusform></numerusform>
            <numerusform></numerusform>
        </translation>
    </message>
</context>
</TS>
`

func TestParseRootAndTree(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if doc.Language != "de_DE" || doc.SourceLanguage != "en" || doc.Version != "2.1" {
		t.Fatalf("root attrs = %q %q %q", doc.Language, doc.SourceLanguage, doc.Version)
	}
	if len(doc.Contexts) != 2 {
		t.Fatalf("contexts = %d, want 2", len(doc.Contexts))
	}
	if doc.Contexts[0].Name != "MainWindow" || doc.Contexts[1].Name != "Dialog" {
		t.Fatalf("context names = %q, %q", doc.Contexts[0].Name, doc.Contexts[1].Name)
	}

	m := doc.MessageBySource("MainWindow", "Save")
	if m == nil || m.Comment != "toolbar button" || m.Translation != "Speichern" {
		t.Fatalf("Save message = %#v", m)
	}
	if got := doc.MessageBySource("Dialog", "Cancel & Quit"); got == nil || got.ExtraComment != "confirmation dialog" {
		t.Fatalf("entity-decoded source lookup failed: %#v", got)
	}
}

func TestPendingSemantics(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	pending := doc.PendingMessages()
	// "Open File" and "Cancel & Quit" are unfinished AND empty.
	// "Close" is unfinished but carries draft text: not pending.
	// The numerus message is never offered.
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].Source != "Open File" || pending[1].Source != "Cancel & Quit" {
		t.Fatalf("pending order = %q, %q", pending[0].Source, pending[1].Source)
	}

	closeMsg := doc.MessageBySource("MainWindow", "Close")
	if closeMsg.Pending() {
		t.Fatal("unfinished message with draft text must not be pending")
	}
	if closeMsg.Finished() {
		t.Fatal("unfinished message must not be finished")
	}
}

func TestRoundTripUnchangedIsByteIdentical(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := doc.Bytes(); !bytes.Equal(got, []byte(sampleTS)) {
		t.Fatalf("unchanged document not byte-identical:\n--- got ---\n%s", got)
	}
}

func TestMutationSplicesOnlyTranslationElement(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	m := doc.MessageBySource("MainWindow", "Open File")
	m.SetTranslation("Datei öffnen", false)

	out := string(doc.Bytes())
	if !strings.Contains(out, "<translation>Datei öffnen</translation>") {
		t.Fatalf("mutated slot missing:\n%s", out)
	}
	// Everything else survives byte-for-byte.
	if !strings.Contains(out, "<!DOCTYPE TS>") ||
		!strings.Contains(out, `<?xml version="1.0" encoding="utf-8"?>`) ||
		!strings.Contains(out, "<translation>Speichern</translation>") ||
		!strings.Contains(out, `<translation type="unfinished">Schlie&#xdf;en?</translation>`) {
		t.Fatalf("untouched regions were rewritten:\n%s", out)
	}

	// Re-parse: the slot is finished now and no longer pending.
	round, err := Parse(bytes.NewReader(doc.Bytes()))
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	rm := round.MessageBySource("MainWindow", "Open File")
	if rm == nil || rm.Translation != "Datei öffnen" || !rm.Finished() {
		t.Fatalf("roundtrip mutated message = %#v", rm)
	}
	if len(round.PendingMessages()) != 1 {
		t.Fatalf("pending after accept = %d, want 1", len(round.PendingMessages()))
	}
}

func TestKeepUnfinishedMarkerAndEscaping(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	m := doc.MessageBySource("Dialog", "Cancel & Quit")
	m.SetTranslation(`Abbrechen & "Beenden" <jetzt>`, true)

	out := string(doc.Bytes())
	want := `<translation type="unfinished">Abbrechen &amp; &quot;Beenden&quot; &lt;jetzt&gt;</translation>`
	if !strings.Contains(out, want) {
		t.Fatalf("escaped unfinished translation missing, got:\n%s", out)
	}
}

func TestSetLanguageRewritesRootOnly(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	doc.SetLanguage("fr_FR")

	out := string(doc.Bytes())
	if !strings.Contains(out, `<TS version="2.1" language="fr_FR" sourcelanguage="en">`) {
		t.Fatalf("root element not rewritten:\n%s", out)
	}
	if !strings.Contains(out, "<translation>Speichern</translation>") {
		t.Fatal("body should be untouched")
	}
}

func TestInsertMessageExistingAndNewContext(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	doc.InsertMessage("MainWindow", "Print…", "")
	doc.InsertMessage("StatusBar", "Ready", "initial state")

	round, err := Parse(bytes.NewReader(doc.Bytes()))
	if err != nil {
		t.Fatalf("reparse after insert error: %v", err)
	}
	if m := round.MessageBySource("MainWindow", "Print…"); m == nil || !m.Pending() {
		t.Fatalf("inserted message not pending: %#v", m)
	}
	if m := round.MessageBySource("StatusBar", "Ready"); m == nil || m.Comment != "initial state" {
		t.Fatalf("inserted context/message missing: %#v", m)
	}
	if len(round.Contexts) != 3 {
		t.Fatalf("contexts after insert = %d, want 3", len(round.Contexts))
	}
}

func TestMarkVanishedAndStats(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	doc.MessageBySource("MainWindow", "Save").MarkVanished()
	round, err := Parse(bytes.NewReader(doc.Bytes()))
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}

	total, finished, unfinished, vanished := round.Stats()
	if vanished != 1 {
		t.Fatalf("vanished = %d, want 1", vanished)
	}
	if total != 4 || finished != 0 || unfinished != 4 {
		t.Fatalf("Stats = total=%d finished=%d unfinished=%d", total, finished, unfinished)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "de_DE.ts")
	if err := os.WriteFile(path, []byte(sampleTS), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	doc.MessageBySource("MainWindow", "Open File").SetTranslation("Datei öffnen", false)
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<translation>Datei öffnen</translation>") {
		t.Fatalf("written file missing mutation:\n%s", data)
	}

	// No temp droppings left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("stray files after atomic write: %d entries", len(entries))
	}
}
