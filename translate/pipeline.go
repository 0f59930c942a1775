package translate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/openlocalize/tsloc/langdet"
	"github.com/openlocalize/tsloc/tsfile"
	"github.com/openlocalize/tsloc/validate"
)

// ---------------------------------------------------------------------------
// Pipeline orchestration
// ---------------------------------------------------------------------------

// Summary aggregates the outcome of one pipeline run across all files.
// Rejected counts candidates a validation stage refused; they stay pending.
type Summary struct {
	FilesProcessed int
	FilesFailed    int
	Translated     int
	Rejected       int
	StillPending   int
	BatchesFailed  int
	Failures       []FileFailure
}

// FileFailure records a file the pipeline could not fully process.
type FileFailure struct {
	Path string
	Err  error
}

// Run translates all pending units in the given TS catalogs. Files are
// processed in parallel up to MaxConcurrentFiles; within a file, batches run
// strictly one after another and the catalog is rewritten after every batch,
// so an interrupted run loses at most the batch in flight. A failing batch
// leaves its units pending and the run continues; the summary reports what
// happened where.
func Run(ctx context.Context, paths []string, opts Options) (*Summary, error) {
	rl := &rateLimitState{}
	gate := newRateGate(opts.RateLimitCount, opts.RateLimitWindow)
	backend := newAIBackend(opts, rl, gate)
	detector := langdet.New()

	sem := semaphore.NewWeighted(int64(opts.effectiveMaxConcurrentFiles()))

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for _, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(path string) {
			defer sem.Release(1)
			defer wg.Done()

			res, err := translateFile(ctx, path, opts, backend, detector)

			mu.Lock()
			defer mu.Unlock()
			summary.FilesProcessed++
			if err != nil {
				summary.FilesFailed++
				summary.Failures = append(summary.Failures, FileFailure{Path: path, Err: err})
				opts.logError("Error translating %s: %v", path, err)
			}
			if res != nil {
				summary.Translated += res.translated
				summary.Rejected += res.rejected
				summary.StillPending += res.stillPending
				summary.BatchesFailed += res.batchesFailed
			}
		}(path)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return &summary, ctx.Err()
	}
	if summary.FilesFailed > 0 {
		return &summary, fmt.Errorf("%d file(s) failed", summary.FilesFailed)
	}
	return &summary, nil
}

// fileResult is the per-file tally folded into the summary.
type fileResult struct {
	translated    int
	rejected      int
	stillPending  int
	batchesFailed int
}

// translateFile runs the batch loop for a single catalog.
func translateFile(ctx context.Context, path string, opts Options, backend Backend, detector *langdet.Detector) (*fileResult, error) {
	doc, err := tsfile.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	targetLang := doc.Language
	if targetLang == "" {
		return nil, fmt.Errorf("%s: catalog has no target language", path)
	}

	if opts.Revalidate {
		return revalidateFile(ctx, path, doc, targetLang, opts, backend, detector)
	}

	pending := doc.PendingMessages()
	if len(pending) == 0 {
		return &fileResult{}, nil
	}

	units := make([]Unit, len(pending))
	for i, msg := range pending {
		ctxName := ""
		if c := doc.ContextOf(msg); c != nil {
			ctxName = c.Name
		}
		units[i] = Unit{
			Context: ctxName,
			Source:  msg.Source,
			Comment: msg.Comment,
			Hint:    msg.ExtraComment,
			Msg:     msg,
		}
	}

	batches := splitUnits(units, opts.effectiveBatchSize())
	res := &fileResult{}
	total := len(units)
	done := 0

	for bi, batch := range batches {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		if opts.Verbose {
			opts.log("  %s: batch %d/%d (%d units)", path, bi+1, len(batches), len(batch))
		}

		accepted, rejected, err := translateBatch(ctx, batch, targetLang, opts, backend, detector)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			opts.logError("  %s: batch %d/%d failed: %v", path, bi+1, len(batches), err)
			res.batchesFailed++
			res.stillPending += len(batch)
			done += len(batch)
			continue
		}

		res.translated += accepted
		res.rejected += rejected
		res.stillPending += len(batch) - accepted

		// Persist after every batch so completed work survives a crash.
		if accepted > 0 {
			if err := doc.WriteFile(path); err != nil {
				return res, fmt.Errorf("writing %s: %w", path, err)
			}
		}

		done += len(batch)
		if opts.OnProgress != nil {
			opts.OnProgress(path, done, total)
		}

		if bi < len(batches)-1 && opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(opts.BatchDelay):
			}
		}
	}

	return res, nil
}

// translateBatch sends one batch through the backend and the validation
// stages, then applies the surviving translations. Returns how many units
// were accepted and how many candidates a validator rejected.
func translateBatch(ctx context.Context, batch []Unit, targetLang string, opts Options, backend Backend, detector *langdet.Detector) (int, int, error) {
	items, outcome, err := backend.TranslateBatch(ctx, batch, targetLang)
	if err != nil {
		return 0, 0, err
	}
	if outcome == ParseFailed {
		return 0, 0, fmt.Errorf("unusable model response")
	}
	if opts.Verbose && outcome != ParseStrict {
		opts.log("  response recovered via %s parsing", outcome)
	}

	mappings := Reconcile(batch, items)

	type candidate struct {
		unit int
		item int
	}
	var candidates []candidate
	rejected := 0

	for _, m := range mappings {
		if !m.Valid {
			if opts.Verbose {
				opts.log("  unit %q left pending: %s", truncate(batch[m.UnitIndex].Source, 60), m.Reason)
			}
			continue
		}
		verdict := validate.Quality(batch[m.UnitIndex].Source, items[m.ResponseIndex].Translation, opts.effectiveThresholds())
		if !verdict.OK {
			opts.logError("  rejected %q: %s", truncate(batch[m.UnitIndex].Source, 60), verdict.Reason)
			rejected++
			continue
		}
		candidates = append(candidates, candidate{unit: m.UnitIndex, item: m.ResponseIndex})
	}

	// Language verification: heuristics first, AI fallback only for the
	// inconclusive remainder.
	if !opts.SkipLanguageCheck && len(candidates) > 0 {
		var unsure []int // indexes into candidates
		kept := candidates[:0]
		for _, c := range candidates {
			switch detector.Check(items[c.item].Translation, targetLang) {
			case langdet.Mismatch:
				opts.logError("  rejected %q: not in target language", truncate(items[c.item].Translation, 60))
				rejected++
			case langdet.Inconclusive:
				unsure = append(unsure, len(kept))
				kept = append(kept, c)
			default:
				kept = append(kept, c)
			}
		}
		candidates = kept

		if len(unsure) > 0 {
			if ai, ok := backend.(*aiBackend); ok {
				texts := make([]string, len(unsure))
				for i, ci := range unsure {
					texts[i] = items[candidates[ci].item].Translation
				}
				oks, err := checkLanguageAI(ctx, ai, texts, targetLang)
				if err == nil {
					kept := candidates[:0]
					drop := make(map[int]bool)
					for i, ci := range unsure {
						if !oks[i] {
							opts.logError("  rejected %q: not in target language", truncate(texts[i], 60))
							rejected++
							drop[ci] = true
						}
					}
					for ci, c := range candidates {
						if !drop[ci] {
							kept = append(kept, c)
						}
					}
					candidates = kept
				}
				// On AI failure inconclusive units pass through; the
				// heuristics found nothing wrong with them.
			}
		}
	}

	// Semantic verification over whatever survived.
	if opts.Semantic && len(candidates) > 0 {
		ai, ok := backend.(*aiBackend)
		if ok {
			sources := make([]string, len(candidates))
			texts := make([]string, len(candidates))
			for i, c := range candidates {
				sources[i] = batch[c.unit].Source
				texts[i] = items[c.item].Translation
			}
			sem := &validate.Semantic{
				Judge:      &aiJudge{backend: ai},
				SourceLang: opts.effectiveSourceLanguage(),
				TargetLang: targetLang,
				Cutoff:     opts.effectiveThresholds().SimilarityCutoff,
			}
			verdicts := sem.CheckBatch(ctx, sources, texts)
			kept := candidates[:0]
			for i, v := range verdicts {
				if v.OK {
					kept = append(kept, candidates[i])
				} else {
					opts.logError("  rejected %q: %s", truncate(texts[i], 60), v.Reason)
					rejected++
				}
			}
			candidates = kept
		}
	}

	for _, c := range candidates {
		batch[c.unit].Msg.SetTranslation(items[c.item].Translation, opts.KeepUnfinished)
	}

	return len(candidates), rejected, nil
}

// revalidateFile re-checks finished translations instead of producing new
// ones. A translation that fails a validation stage is reset to the
// unfinished slot with empty text, so the next translate run offers it again.
func revalidateFile(ctx context.Context, path string, doc *tsfile.Document, targetLang string, opts Options, backend Backend, detector *langdet.Detector) (*fileResult, error) {
	var finished []*tsfile.Message
	for _, cx := range doc.Contexts {
		for _, msg := range cx.Messages {
			if msg.Finished() && !msg.Numerus {
				finished = append(finished, msg)
			}
		}
	}
	if len(finished) == 0 {
		return &fileResult{}, nil
	}

	res := &fileResult{}
	total := len(finished)
	demoted := 0
	th := opts.effectiveThresholds()

	keep := finished[:0]
	for _, msg := range finished {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		verdict := validate.Quality(msg.Source, msg.Translation, th)
		if verdict.OK && !opts.SkipLanguageCheck && detector.Check(msg.Translation, targetLang) == langdet.Mismatch {
			verdict = validate.Verdict{Reason: "not in target language"}
		}
		if !verdict.OK {
			opts.logError("  demoted %q: %s", truncate(msg.Source, 60), verdict.Reason)
			msg.SetTranslation("", true)
			demoted++
			continue
		}
		keep = append(keep, msg)
	}
	finished = keep

	if opts.Semantic && len(finished) > 0 {
		if ai, ok := backend.(*aiBackend); ok {
			sem := &validate.Semantic{
				Judge:      &aiJudge{backend: ai},
				SourceLang: opts.effectiveSourceLanguage(),
				TargetLang: targetLang,
				Cutoff:     th.SimilarityCutoff,
			}
			for _, batch := range splitMessages(finished, opts.effectiveBatchSize()) {
				sources := make([]string, len(batch))
				texts := make([]string, len(batch))
				for i, msg := range batch {
					sources[i] = msg.Source
					texts[i] = msg.Translation
				}
				for i, v := range sem.CheckBatch(ctx, sources, texts) {
					if !v.OK {
						opts.logError("  demoted %q: %s", truncate(batch[i].Source, 60), v.Reason)
						batch[i].SetTranslation("", true)
						demoted++
					}
				}
			}
		}
	}

	res.rejected = demoted
	res.stillPending = demoted
	if demoted > 0 {
		if err := doc.WriteFile(path); err != nil {
			return res, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if opts.OnProgress != nil {
		opts.OnProgress(path, total, total)
	}
	return res, nil
}

func splitMessages(msgs []*tsfile.Message, batchSize int) [][]*tsfile.Message {
	if batchSize <= 0 || batchSize >= len(msgs) {
		return [][]*tsfile.Message{msgs}
	}
	var batches [][]*tsfile.Message
	for i := 0; i < len(msgs); i += batchSize {
		end := i + batchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		batches = append(batches, msgs[i:end])
	}
	return batches
}

// splitUnits divides units into batches of the given size.
func splitUnits(units []Unit, batchSize int) [][]Unit {
	if batchSize <= 0 || batchSize >= len(units) {
		return [][]Unit{units}
	}
	var batches [][]Unit
	for i := 0; i < len(units); i += batchSize {
		end := i + batchSize
		if end > len(units) {
			end = len(units)
		}
		batches = append(batches, units[i:end])
	}
	return batches
}
