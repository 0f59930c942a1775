// Package tsfile implements reading and writing of Qt Linguist TS
// message catalogs.
//
// The parser keeps the original file bytes alongside the decoded tree.
// Serialization splices re-rendered elements only where the document was
// actually mutated; everything else (declaration, doctype, attributes,
// comments, whitespace) is emitted byte-for-byte as it was read. This is
// what makes incremental write-back safe: a load→save cycle with no
// accepted translations reproduces the input exactly.
package tsfile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Translation slot type markers used by Qt Linguist.
const (
	TypeFinished   = ""
	TypeUnfinished = "unfinished"
	TypeVanished   = "vanished"
	TypeObsolete   = "obsolete"
)

// span marks a byte range [start, end) in the original file.
type span struct {
	start int64
	end   int64
}

// Message represents a single translatable entry inside a context.
type Message struct {
	// Source is the untranslated string. Immutable after parse.
	Source string
	// Comment is the disambiguation comment (the <comment> element).
	Comment string
	// ExtraComment is the developer note (the <extracomment> element).
	ExtraComment string
	// Translation is the current translation text.
	Translation string
	// Type is the translation slot marker: "", "unfinished", "vanished", "obsolete".
	Type string
	// Numerus marks plural-form messages; these are preserved verbatim
	// and never offered for batch translation.
	Numerus bool

	// protected marks translations containing nested markup
	// (lengthvariant, byte). They are preserved but never rewritten.
	protected bool
	transSpan span
	dirty     bool
}

// Pending reports whether the message should be offered for translation:
// the slot carries the unfinished marker AND the text is empty. A slot
// that is marked unfinished but already holds text is a draft awaiting
// human review, not a candidate for machine translation.
func (m *Message) Pending() bool {
	if m.Numerus || m.protected {
		return false
	}
	return m.Type == TypeUnfinished && strings.TrimSpace(m.Translation) == ""
}

// Finished reports whether the message has a completed translation.
func (m *Message) Finished() bool {
	return m.Type == TypeFinished && m.Translation != ""
}

// SetTranslation fills the translation slot and re-renders the element on
// the next save. When keepUnfinished is true the unfinished marker is
// retained so a human reviewer can find machine-filled entries.
func (m *Message) SetTranslation(text string, keepUnfinished bool) {
	m.Translation = text
	if keepUnfinished {
		m.Type = TypeUnfinished
	} else {
		m.Type = TypeFinished
	}
	m.dirty = true
}

// MarkVanished flags the slot as vanished (source no longer in template).
func (m *Message) MarkVanished() {
	m.Type = TypeVanished
	m.dirty = true
}

// Context is a named group of messages, usually one per source class.
type Context struct {
	Name     string
	Messages []*Message

	// closeOff is the offset of "</context>", where new messages are inserted.
	closeOff int64
}

// Document is a parsed TS catalog bound to its original bytes.
type Document struct {
	// Language is the target language attribute of the root element.
	Language string
	// SourceLanguage is the source language attribute (usually "en").
	SourceLanguage string
	// Version is the TS format version attribute.
	Version string
	// Contexts are the ordered context blocks.
	Contexts []*Context

	raw       []byte
	rootSpan  span
	rootDirty bool
	closeOff  int64 // offset of "</TS>"
	indent    string

	insertions []insertion
}

type insertion struct {
	off  int64
	text string
}

// Parse reads a TS document, retaining the raw bytes for splice-based saves.
func Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading TS document: %w", err)
	}
	return parseBytes(raw)
}

// ParseFile reads a TS catalog from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := parseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func parseBytes(raw []byte) (*Document, error) {
	doc := &Document{raw: raw, indent: "    "}
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var (
		stack  []string
		curCtx *Context
		curMsg *Message
		text   strings.Builder
	)

	top := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed TS document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch name {
			case "TS":
				doc.rootSpan = span{start: before, end: dec.InputOffset()}
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "language":
						doc.Language = a.Value
					case "sourcelanguage":
						doc.SourceLanguage = a.Value
					case "version":
						doc.Version = a.Value
					}
				}
			case "context":
				curCtx = &Context{}
			case "message":
				if curCtx != nil {
					curMsg = &Message{}
					for _, a := range t.Attr {
						if a.Name.Local == "numerus" && a.Value == "yes" {
							curMsg.Numerus = true
						}
					}
				}
			case "translation":
				if curMsg != nil {
					curMsg.transSpan.start = before
					for _, a := range t.Attr {
						if a.Name.Local == "type" {
							curMsg.Type = a.Value
						}
					}
				}
			case "numerusform", "lengthvariant", "byte":
				if curMsg != nil && top() == "translation" {
					curMsg.protected = curMsg.protected || name != "numerusform"
				}
			}
			stack = append(stack, name)
			if name == "name" || name == "source" || name == "comment" ||
				name == "extracomment" || name == "translation" {
				text.Reset()
			}

		case xml.CharData:
			switch top() {
			case "name", "source", "comment", "extracomment", "translation":
				text.Write(t)
			case "numerusform":
				text.Write(t)
			}

		case xml.EndElement:
			name := t.Name.Local
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch name {
			case "name":
				if curCtx != nil && top() == "context" {
					curCtx.Name = text.String()
				}
			case "source":
				if curMsg != nil {
					curMsg.Source = text.String()
				}
			case "comment":
				if curMsg != nil {
					curMsg.Comment = text.String()
				}
			case "extracomment":
				if curMsg != nil {
					curMsg.ExtraComment = text.String()
				}
			case "translation":
				if curMsg != nil {
					curMsg.Translation = text.String()
					curMsg.transSpan.end = dec.InputOffset()
				}
			case "message":
				if curCtx != nil && curMsg != nil {
					curCtx.Messages = append(curCtx.Messages, curMsg)
				}
				curMsg = nil
			case "context":
				if curCtx != nil {
					curCtx.closeOff = before
					doc.Contexts = append(doc.Contexts, curCtx)
				}
				curCtx = nil
			case "TS":
				doc.closeOff = before
			}
		}
	}

	if doc.rootSpan.end == 0 {
		return nil, fmt.Errorf("malformed TS document: no <TS> root element")
	}
	doc.indent = detectIndent(raw)
	return doc, nil
}

// detectIndent finds the indentation unit from the first <name> line,
// which Qt's writer indents exactly one level. Qt tools write 4 spaces;
// hand-edited files vary.
func detectIndent(raw []byte) string {
	idx := bytes.Index(raw, []byte("<name>"))
	if idx < 0 {
		return "    "
	}
	lineStart := bytes.LastIndexByte(raw[:idx], '\n') + 1
	indent := string(raw[lineStart:idx])
	if indent == "" || strings.TrimLeft(indent, " \t") != "" {
		return "    "
	}
	return indent
}

// SetLanguage rewrites the target-language attribute of the root element.
func (d *Document) SetLanguage(lang string) {
	d.Language = lang
	d.rootDirty = true
}

// PendingMessages returns, in document order, every message whose
// translation slot is pending. This order is the canonical index space
// used by the translation pipeline for batch alignment.
func (d *Document) PendingMessages() []*Message {
	var pending []*Message
	for _, ctx := range d.Contexts {
		for _, m := range ctx.Messages {
			if m.Pending() {
				pending = append(pending, m)
			}
		}
	}
	return pending
}

// ContextOf returns the context containing the message, or nil.
func (d *Document) ContextOf(m *Message) *Context {
	for _, ctx := range d.Contexts {
		for _, c := range ctx.Messages {
			if c == m {
				return ctx
			}
		}
	}
	return nil
}

// MessageBySource finds a non-vanished message by context name and source.
func (d *Document) MessageBySource(context, source string) *Message {
	for _, ctx := range d.Contexts {
		if ctx.Name != context {
			continue
		}
		for _, m := range ctx.Messages {
			if m.Source == source && m.Type != TypeVanished && m.Type != TypeObsolete {
				return m
			}
		}
	}
	return nil
}

// Stats returns catalog totals for status display.
func (d *Document) Stats() (total, finished, unfinished, vanished int) {
	for _, ctx := range d.Contexts {
		for _, m := range ctx.Messages {
			switch m.Type {
			case TypeVanished, TypeObsolete:
				vanished++
				continue
			}
			total++
			if m.Finished() {
				finished++
			} else {
				unfinished++
			}
		}
	}
	return
}

// InsertMessage schedules a new pending message at the end of the named
// context, creating the context if the catalog has no block for it yet.
// Used by template merging; the element is rendered with the document's
// detected indentation on the next save.
func (d *Document) InsertMessage(context, source, comment string) {
	ind := d.indent

	renderMsg := func(b *strings.Builder, depth int) {
		pad := strings.Repeat(ind, depth)
		b.WriteString(pad + "<message>\n")
		b.WriteString(pad + ind + "<source>" + escapeText(source) + "</source>\n")
		if comment != "" {
			b.WriteString(pad + ind + "<comment>" + escapeText(comment) + "</comment>\n")
		}
		b.WriteString(pad + ind + "<translation type=\"unfinished\"></translation>\n")
		b.WriteString(pad + "</message>\n")
	}

	tracked := &Message{Source: source, Comment: comment, Type: TypeUnfinished, transSpan: span{start: -1}}

	for _, ctx := range d.Contexts {
		if ctx.Name == context {
			var b strings.Builder
			renderMsg(&b, 1)
			d.insertions = append(d.insertions, insertion{off: lineStartAt(d.raw, ctx.closeOff), text: b.String()})
			ctx.Messages = append(ctx.Messages, tracked)
			return
		}
	}

	// No such context: append a whole block before </TS>.
	// Qt's writer keeps <context> at column zero.
	var b strings.Builder
	b.WriteString("<context>\n")
	b.WriteString(ind + "<name>" + escapeText(context) + "</name>\n")
	renderMsg(&b, 1)
	b.WriteString("</context>\n")
	d.insertions = append(d.insertions, insertion{off: lineStartAt(d.raw, d.closeOff), text: b.String()})
	d.Contexts = append(d.Contexts, &Context{Name: context, Messages: []*Message{tracked}})
}

// lineStartAt returns the offset of the first byte of the line containing off.
func lineStartAt(raw []byte, off int64) int64 {
	return int64(bytes.LastIndexByte(raw[:off], '\n') + 1)
}

// Bytes serializes the document: original bytes everywhere, re-rendered
// elements only at mutation points.
func (d *Document) Bytes() []byte {
	type edit struct {
		sp   span
		text string
	}
	var edits []edit

	if d.rootDirty {
		edits = append(edits, edit{sp: d.rootSpan, text: d.renderRoot()})
	}
	for _, ctx := range d.Contexts {
		for _, m := range ctx.Messages {
			if m.dirty && m.transSpan.start >= 0 {
				edits = append(edits, edit{sp: m.transSpan, text: renderTranslation(m)})
			}
		}
	}
	for _, ins := range d.insertions {
		edits = append(edits, edit{sp: span{start: ins.off, end: ins.off}, text: ins.text})
	}

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].sp.start < edits[j].sp.start })

	var out bytes.Buffer
	out.Grow(len(d.raw) + 256)
	var pos int64
	for _, e := range edits {
		if e.sp.start < pos {
			continue // overlapping edit, first one wins
		}
		out.Write(d.raw[pos:e.sp.start])
		out.WriteString(e.text)
		pos = e.sp.end
	}
	out.Write(d.raw[pos:])
	return out.Bytes()
}

// Write writes the serialized document to w.
func (d *Document) Write(w io.Writer) error {
	_, err := w.Write(d.Bytes())
	return err
}

// WriteFile writes the document to disk atomically: the serialized bytes
// land in a temp file first and replace the target via rename, so a crash
// mid-write never leaves a truncated catalog behind.
func (d *Document) WriteFile(path string) error {
	data := d.Bytes()
	dir, base := splitPath(path)
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func splitPath(path string) (dir, base string) {
	idx := strings.LastIndexByte(path, os.PathSeparator)
	if idx < 0 {
		return ".", path
	}
	return path[:idx], path[idx+1:]
}

func (d *Document) renderRoot() string {
	var b strings.Builder
	b.WriteString("<TS")
	if d.Version != "" {
		b.WriteString(` version="` + escapeAttr(d.Version) + `"`)
	}
	if d.Language != "" {
		b.WriteString(` language="` + escapeAttr(d.Language) + `"`)
	}
	if d.SourceLanguage != "" {
		b.WriteString(` sourcelanguage="` + escapeAttr(d.SourceLanguage) + `"`)
	}
	b.WriteString(">")
	return b.String()
}

func renderTranslation(m *Message) string {
	var b strings.Builder
	b.WriteString("<translation")
	if m.Type != TypeFinished {
		b.WriteString(` type="` + m.Type + `"`)
	}
	b.WriteString(">")
	b.WriteString(escapeText(m.Translation))
	b.WriteString("</translation>")
	return b.String()
}

// escapeText escapes text content the way Qt Linguist's writer does:
// ampersand, angle brackets, and double quotes.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

func escapeAttr(s string) string {
	s = escapeText(s)
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
