// Package merge implements catalog synchronization against a template TS
// file, equivalent to what lupdate does for source trees: new template
// messages are added to the language catalog as pending, messages that left
// the template are marked vanished. The language catalog is edited in place
// so its untouched parts keep their on-disk bytes.
package merge

import (
	"fmt"
	"os"

	"github.com/openlocalize/tsloc/tsfile"
)

// Result summarizes one merge.
type Result struct {
	// Added is the number of messages copied from the template as pending.
	Added int
	// Vanished is the number of messages newly marked vanished.
	Vanished int
	// Kept is the number of messages present on both sides.
	Kept int
}

// Merge updates a language catalog from a template catalog.
//   - Messages only in the template are inserted with an empty unfinished
//     translation.
//   - Messages on both sides keep their translation untouched.
//   - Messages only in the language catalog are marked vanished.
func Merge(target, template *tsfile.Document) Result {
	var res Result

	type key struct{ context, source string }

	inTemplate := make(map[key]bool)
	for _, ctx := range template.Contexts {
		for _, msg := range ctx.Messages {
			inTemplate[key{ctx.Name, msg.Source}] = true
		}
	}

	have := make(map[key]bool)
	for _, ctx := range target.Contexts {
		for _, msg := range ctx.Messages {
			k := key{ctx.Name, msg.Source}
			have[k] = true
			if inTemplate[k] {
				res.Kept++
				continue
			}
			if msg.Type != tsfile.TypeVanished && msg.Type != tsfile.TypeObsolete {
				msg.MarkVanished()
				res.Vanished++
			}
		}
	}

	for _, ctx := range template.Contexts {
		for _, msg := range ctx.Messages {
			if have[key{ctx.Name, msg.Source}] {
				continue
			}
			target.InsertMessage(ctx.Name, msg.Source, msg.Comment)
			res.Added++
		}
	}

	return res
}

// MergeFiles merges templatePath into targetPath on disk. A missing target
// is created from the template first.
func MergeFiles(targetPath, templatePath, lang string) (Result, error) {
	template, err := tsfile.ParseFile(templatePath)
	if err != nil {
		return Result{}, fmt.Errorf("parsing template %s: %w", templatePath, err)
	}

	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		if err := CreateFromTemplate(templatePath, targetPath, lang); err != nil {
			return Result{}, err
		}
	}

	target, err := tsfile.ParseFile(targetPath)
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", targetPath, err)
	}

	res := Merge(target, template)
	if res.Added > 0 || res.Vanished > 0 {
		if err := target.WriteFile(targetPath); err != nil {
			return res, fmt.Errorf("writing %s: %w", targetPath, err)
		}
	}
	return res, nil
}

// CreateFromTemplate materializes a new language catalog from the template:
// same messages, language attribute set, all translations pending.
func CreateFromTemplate(templatePath, targetPath, lang string) error {
	doc, err := tsfile.ParseFile(templatePath)
	if err != nil {
		return fmt.Errorf("parsing template %s: %w", templatePath, err)
	}
	doc.SetLanguage(lang)
	if err := doc.WriteFile(targetPath); err != nil {
		return fmt.Errorf("creating %s: %w", targetPath, err)
	}
	return nil
}
