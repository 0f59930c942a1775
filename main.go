// tsloc: Qt Linguist TS catalog manager with AI batch translation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlocalize/tsloc/config"
	"github.com/openlocalize/tsloc/i18n"
	"github.com/openlocalize/tsloc/langmeta"
	"github.com/openlocalize/tsloc/lconvert"
	"github.com/openlocalize/tsloc/lockfile"
	"github.com/openlocalize/tsloc/merge"
	"github.com/openlocalize/tsloc/remote"
	"github.com/openlocalize/tsloc/settings"
	"github.com/openlocalize/tsloc/translate"
	"github.com/openlocalize/tsloc/tsfile"
	"github.com/openlocalize/tsloc/validate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tsloc",
		Short: "Qt Linguist TS catalog manager with AI batch translation",
		Long: `tsloc: Qt Linguist TS catalog manager with AI batch translation.

Auto-detects <base>_<lang>.ts catalogs in conventional directories, or reads
an explicit .tsloc.yaml project file. Translates pending (unfinished, empty)
messages in validated batches, rewriting the catalog after every batch so an
interrupted run never loses finished work and never corrupts the file.

Commands:
  status      Show project info and translation statistics
  translate   Translate pending messages using AI
  merge       Sync language catalogs against the template catalog
  release     Compile .ts catalogs into binary .qm files
  auth        Manage provider API keys

AI Providers:
  openai         OpenAI (API key)
  google         Google AI (Gemini), API key
  anthropic      Anthropic (API key)
  groq           Groq (API key)
  ollama         Ollama local server (no key)
  custom-openai  Custom OpenAI-compatible endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newTranslateCmd(),
		newMergeCmd(),
		newReleaseCmd(),
		newSyncCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tsloc version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Project loading
// ---------------------------------------------------------------------------

// loadProject resolves the project from .tsloc.yaml when present, falling
// back to catalog auto-detection. The returned TSLocFile is nil when the
// project has no config file.
func loadProject() (*config.Project, *config.TSLocFile, error) {
	tf, err := config.LoadTSLocFile(rootDir)
	if err != nil {
		return nil, nil, err
	}
	if tf != nil {
		proj, err := tf.Resolve(rootDir)
		if err != nil {
			return nil, nil, err
		}
		return proj, tf, nil
	}
	return config.Detect(rootDir), nil, nil
}

// ---------------------------------------------------------------------------
// status (read-only: project info + translation stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project info and translation statistics",
		Long: `Show the resolved project structure and translation statistics.

Displays the catalog directory, template, detected languages, and per-language
translation progress. Does not modify any files.`,
		Run: func(cmd *cobra.Command, args []string) {
			runStatus()
		},
	}
}

func runStatus() {
	proj, tf, err := loadProject()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	fmt.Fprintf(os.Stderr, "  Name:       %s\n", proj.Name)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", proj.RootDir)
	if tf != nil {
		fmt.Fprintf(os.Stderr, "  Config:     %s\n", config.TSLocFileName)
	} else {
		fmt.Fprintf(os.Stderr, "  Config:     auto-detected\n")
	}
	fmt.Fprintf(os.Stderr, "  Catalogs:   %s\n", proj.CatalogDir)
	if proj.Template != "" {
		fmt.Fprintf(os.Stderr, "  Template:   %s\n", filepath.Base(proj.Template))
	}
	fmt.Fprintf(os.Stderr, "  Source:     %s\n", proj.SourceLang)

	if len(proj.Languages) > 0 {
		fmt.Fprintf(os.Stderr, "  Languages:  %s\n", strings.Join(proj.Languages, ", "))
	} else {
		fmt.Fprintf(os.Stderr, "  Languages:  none detected\n")
	}
	fmt.Fprintln(os.Stderr)

	if len(proj.Languages) == 0 {
		logInfo(i18n.T("No catalogs found. Run from a project root or pass --root."))
		return
	}

	showStatsTable(proj)

	if lf, err := lockfile.Load(proj.RootDir); err == nil {
		if catalogs, _ := lf.Stats(); catalogs > 0 {
			fmt.Fprintf(os.Stderr, "  Lock file:  %s\n\n", lf.Summary())
		}
	}

	printSuggestedCommands(proj)
}

func showStatsTable(proj *config.Project) {
	fmt.Fprintf(os.Stderr, "%sTranslation Statistics%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "\n%-10s %-20s %-10s %-10s %-8s\n", "Lang", "Name", "Finished", "Pending", "Percent")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	type langGap struct {
		lang    string
		pending int
	}
	var gaps []langGap

	for _, lang := range proj.Languages {
		path := proj.CatalogPath(lang)
		doc, err := tsfile.ParseFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-10s %-20s %-10s %-10s %-8s\n", lang, langmeta.NativeName(lang), "missing", "-", "-")
			continue
		}

		total, finished, unfinished, vanished := doc.Stats()
		active := total - vanished
		percent := 0
		if active > 0 {
			percent = finished * 100 / active
		}

		fmt.Fprintf(os.Stderr, "%-10s %-20s %-10d %-10d %d%%\n", lang, langmeta.NativeName(lang), finished, unfinished, percent)

		if pending := len(doc.PendingMessages()); pending > 0 {
			gaps = append(gaps, langGap{lang, pending})
		}
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	if len(gaps) > 0 {
		fmt.Fprintln(os.Stderr)
		logInfo("Translation gaps:")
		for _, g := range gaps {
			fmt.Fprintf(os.Stderr, "  %s: %d pending\n", g.lang, g.pending)
		}
	}

	fmt.Fprintln(os.Stderr)
}

func printSuggestedCommands(proj *config.Project) {
	anyPending := false
	for _, lang := range proj.Languages {
		if doc, err := tsfile.ParseFile(proj.CatalogPath(lang)); err == nil {
			if len(doc.PendingMessages()) > 0 {
				anyPending = true
				break
			}
		}
	}

	fmt.Fprintf(os.Stderr, "%sSuggested commands%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	if proj.Template != "" {
		fmt.Fprintln(os.Stderr, "  tsloc merge                          Sync catalogs with the template")
	}
	if anyPending {
		fmt.Fprintln(os.Stderr, "  tsloc translate --provider openai    Translate pending messages")
	}
	fmt.Fprintln(os.Stderr, "  tsloc release                        Compile catalogs to .qm")
	fmt.Fprintln(os.Stderr)
}

// ---------------------------------------------------------------------------
// merge (template sync)
// ---------------------------------------------------------------------------

func newMergeCmd() *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Sync language catalogs against the template catalog",
		Long: `Sync every language catalog against the template catalog.

New template messages are added as unfinished, messages no longer in the
template are marked vanished, existing translations are kept untouched.
Missing language catalogs are created from the template.

Examples:
  tsloc merge
  tsloc merge --template translations/app.ts`,
		Run: func(cmd *cobra.Command, args []string) {
			runMerge(template)
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Template catalog path (default: auto-detected)")

	return cmd
}

func runMerge(template string) {
	proj, _, err := loadProject()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	if template == "" {
		template = proj.Template
	}
	if template == "" {
		logError("No template catalog found. Pass --template or add a language-less .ts file (e.g. app.ts).")
		os.Exit(1)
	}
	if len(proj.Languages) == 0 {
		logError("No target languages. Declare them in %s or create <base>_<lang>.ts catalogs.", config.TSLocFileName)
		os.Exit(1)
	}

	for _, lang := range proj.Languages {
		path := proj.CatalogPath(lang)
		created := !fileExists(path)

		res, err := merge.MergeFiles(path, template, lang)
		if err != nil {
			logError("%s: %v", lang, err)
			os.Exit(1)
		}

		switch {
		case created:
			logSuccess("%s: created from template (%d messages)", lang, res.Added+res.Kept)
		case res.Added == 0 && res.Vanished == 0:
			logInfo("%s: up to date (%d messages)", lang, res.Kept)
		default:
			logSuccess("%s: %d added, %d vanished, %d kept", lang, res.Added, res.Vanished, res.Kept)
		}
	}
}

// ---------------------------------------------------------------------------
// release (compile .qm)
// ---------------------------------------------------------------------------

func newReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Compile .ts catalogs into binary .qm files",
		Long: `Compile every language catalog into a binary .qm file using lrelease.

Unfinished messages are omitted from the compiled catalog; Qt falls back to
the source string at runtime.`,
		Run: func(cmd *cobra.Command, args []string) {
			runRelease()
		},
	}
}

func runRelease() {
	proj, _, err := loadProject()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	if len(proj.Languages) == 0 {
		logError("No catalogs to release")
		os.Exit(1)
	}
	if !lconvert.LreleaseAvailable() {
		logError("lrelease not found; install Qt Linguist tools: sudo apt install qttools5-dev-tools")
		os.Exit(1)
	}

	var paths []string
	for _, lang := range proj.Languages {
		path := proj.CatalogPath(lang)
		if fileExists(path) {
			paths = append(paths, path)
		}
	}

	results, err := lconvert.ReleaseAll(context.Background(), paths)
	for _, res := range results {
		logSuccess("%s (%d bytes)", res.OutputPath, res.Bytes)
	}
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	logInfo(i18n.N("Found %d catalog", "Found %d catalogs", len(results)), len(results))
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

// ---------------------------------------------------------------------------
// sync command
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	var push bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror repositories and remote catalogs declared in .tsloc.yaml",
		Long: `Clone or fast-forward the repositories declared under repos: into
.tsloc/repos, then download every resources: entry into the project tree.

With --push, local resource files are uploaded back to their URLs instead.`,
		Run: func(cmd *cobra.Command, args []string) {
			runSync(push)
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "Upload local resource files instead of downloading")
	return cmd
}

func runSync(push bool) {
	tf, err := config.LoadTSLocFile(rootDir)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	if tf == nil {
		logError("sync requires a %s with repos or resources declared", config.TSLocFileName)
		os.Exit(1)
	}
	if len(tf.Repos) == 0 && len(tf.Resources) == 0 {
		logInfo("Nothing to sync")
		return
	}

	// Graceful cancellation on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	if len(tf.Repos) > 0 && !push {
		repos := make([]remote.Repo, len(tf.Repos))
		for i, r := range tf.Repos {
			repos[i] = remote.Repo{Name: r.Name, URL: r.URL, Branch: r.Branch}
		}
		baseDir := filepath.Join(rootDir, ".tsloc", "repos")
		if err := remote.EnsureLocal(ctx, repos, baseDir); err != nil {
			logError("%v", err)
			os.Exit(1)
		}
		logSuccess("%d repositories up to date in %s", len(repos), relPath(rootDir, baseDir))
	}

	var n int
	if push {
		n, err = uploadResources(ctx, tf.Resources, rootDir)
	} else {
		n, err = downloadResources(ctx, tf.Resources, rootDir)
	}
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	if len(tf.Resources) > 0 {
		verb := "downloaded"
		if push {
			verb = "uploaded"
		}
		logSuccess("%d resource(s) %s", n, verb)
	}
}

// downloadResources mirrors each declared resource into the project tree.
func downloadResources(ctx context.Context, resources []config.ResourceConfig, root string) (int, error) {
	n := 0
	for _, r := range resources {
		res, err := remote.Download(ctx, r.URL, filepath.Join(root, filepath.FromSlash(r.Path)))
		if err != nil {
			return n, err
		}
		logInfo("  %s (%d bytes)", relPath(root, res.Path), res.Bytes)
		n++
	}
	return n, nil
}

// uploadResources sends each local resource file back to its URL.
func uploadResources(ctx context.Context, resources []config.ResourceConfig, root string) (int, error) {
	n := 0
	for _, r := range resources {
		local := filepath.Join(root, filepath.FromSlash(r.Path))
		if !fileExists(local) {
			return n, fmt.Errorf("%s: local file missing, nothing to upload", r.Path)
		}
		res, err := remote.Upload(ctx, r.URL, local)
		if err != nil {
			return n, err
		}
		logInfo("  %s (%d bytes)", relPath(root, res.Path), res.Bytes)
		n++
	}
	return n, nil
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate pending messages using AI",
		Long: `Translate pending (unfinished, empty) messages in all catalogs using AI.

Messages are sent in batches; every response is verified against the echoed
source strings, run through quality heuristics and a target-language check,
and the catalog is rewritten after each accepted batch. A failing batch
leaves its messages pending and the run continues.

Settings come from .tsloc.yaml, then TSLOC_* environment variables, then
flags, in increasing priority.

Examples:
  # Translate everything pending with OpenAI
  tsloc translate --provider openai --model gpt-4o-mini

  # Specific languages, full semantic validation
  tsloc translate --provider anthropic --lang de_DE,fr_FR --validation semantic

  # Re-check existing translations instead of producing new ones
  tsloc translate --provider openai --revalidate

  # Dry run (show what would be translated)
  tsloc translate --provider openai --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			runTranslate(cmd, a)
		},
	}

	// Provider selection
	cmd.Flags().StringVar(&a.provider, "provider", "", "AI provider (required): openai, google, anthropic, groq, ollama, custom-openai")
	cmd.Flags().StringVar(&a.model, "model", "", "Model name (default: provider default)")
	cmd.Flags().StringVar(&a.apiKey, "api-key", "", "API key (or TSLOC_API_KEY env var)")
	cmd.Flags().StringVar(&a.baseURL, "base-url", "", "Custom API base URL")

	// Target selection
	cmd.Flags().StringVar(&a.langs, "lang", "", "Languages to translate (comma-separated, default: all with pending messages)")

	// Translation behavior
	cmd.Flags().IntVar(&a.batchSize, "batch-size", 0, "Messages per API request (default 25)")
	cmd.Flags().StringVar(&a.validation, "validation", "language", "Validation mode: none, language, semantic")
	cmd.Flags().BoolVar(&a.keepUnfinished, "keep-unfinished", false, "Keep the unfinished marker on written translations for human review")
	cmd.Flags().BoolVar(&a.revalidate, "revalidate", false, "Re-check finished translations; failures become pending again")
	cmd.Flags().StringVar(&a.prompt, "prompt", "", "Custom system prompt (use {{targetLang}} placeholder)")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without calling AI")
	cmd.Flags().BoolVar(&a.noLock, "no-lockfile", false, "Skip tsloc.lock staleness tracking")

	// Parallelization and pacing
	cmd.Flags().IntVar(&a.maxConcurrent, "max-concurrent", 0, "Maximum catalogs processed at once (default 3)")
	cmd.Flags().BoolVar(&a.forceSerial, "force-serial", false, "Process catalogs one at a time")
	cmd.Flags().IntVar(&a.rateCount, "rate-limit", 0, "Maximum requests per rate window (0 = unlimited)")
	cmd.Flags().DurationVar(&a.rateWindow, "rate-window", time.Minute, "Rate limit window")
	cmd.Flags().DurationVar(&a.batchDelay, "batch-delay", 0, "Delay between consecutive batches of one catalog")

	// Network
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	cmd.Flags().StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, "Maximum retries on rate limit (default 3)")

	// Provider completion
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"openai\tOpenAI, API key required",
			"google\tGoogle AI (Gemini), API key required",
			"anthropic\tAnthropic, API key required",
			"groq\tGroq, API key required",
			"ollama\tOllama local server",
			"custom-openai\tCustom OpenAI-compatible endpoint",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	// Model completion (provider-aware)
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		switch p {
		case "openai":
			return []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"}, cobra.ShellCompDirectiveNoFileComp
		case "google":
			return []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-1.5-pro"}, cobra.ShellCompDirectiveNoFileComp
		case "anthropic":
			return []string{"claude-3-5-haiku-latest", "claude-sonnet-4-5"}, cobra.ShellCompDirectiveNoFileComp
		case "groq":
			return []string{"llama-3.3-70b-versatile", "mixtral-8x7b-32768"}, cobra.ShellCompDirectiveNoFileComp
		case "ollama":
			return []string{"llama3.2", "qwen2.5", "mistral"}, cobra.ShellCompDirectiveNoFileComp
		default:
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	})

	return cmd
}

type translateArgs struct {
	langs                            string
	provider, apiKey, model, baseURL string
	batchSize                        int
	validation                       string
	keepUnfinished, revalidate       bool
	prompt                           string
	verbose, dryRun, noLock          bool
	maxConcurrent                    int
	forceSerial                      bool
	rateCount                        int
	rateWindow, batchDelay, timeout  time.Duration
	proxy                            string
	maxRetries                       int
}

func runTranslate(cmd *cobra.Command, a translateArgs) {
	proj, tf, err := loadProject()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	// Layer the pipeline settings: file, then environment, then flags.
	var pc config.PipelineConfig
	var th config.ThresholdConfig
	if tf != nil {
		pc = tf.Pipeline
		th = tf.Thresholds
	}
	if env, err := config.LoadEnv(); err == nil {
		env.Apply(&pc)
	}
	applyTranslateFlags(cmd, &a, &pc)

	if a.provider == "" {
		logError("No provider specified. Use --provider to choose an AI translation service.\n\n" +
			"Available providers:\n" +
			"  Cloud APIs (require API key):\n" +
			"    openai         OpenAI\n" +
			"    google         Google AI (Gemini)\n" +
			"    anthropic      Anthropic\n" +
			"    groq           Groq\n\n" +
			"  Local services (no API key):\n" +
			"    ollama         Ollama local server\n\n" +
			"  Custom:\n" +
			"    custom-openai  Custom OpenAI-compatible endpoint\n\n" +
			"Example: tsloc translate --provider openai --model gpt-4o-mini")
		os.Exit(1)
	}

	// Resolve API key from flag, environment, or settings store
	key := a.apiKey
	if key == "" {
		key = os.Getenv("TSLOC_API_KEY")
	}
	if key == "" {
		key = settings.GetAPIKey(a.provider)
	}

	prov := resolveProvider(a.provider, a.baseURL, key, a.model, a.proxy, a.timeout)
	if err := validateProvider(prov, key); err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	// Determine which languages to translate
	var targetLangs []string
	if a.langs != "" {
		targetLangs = strings.Split(a.langs, ",")
	} else {
		for _, lang := range proj.Languages {
			path := proj.CatalogPath(lang)
			doc, err := tsfile.ParseFile(path)
			if err != nil {
				if !fileExists(path) && proj.Template != "" {
					// Catalog will be created from the template below.
					targetLangs = append(targetLangs, lang)
					continue
				}
				logWarning("Skipping %s: %v", lang, err)
				continue
			}
			if a.revalidate || len(doc.PendingMessages()) > 0 {
				targetLangs = append(targetLangs, lang)
			}
		}
	}

	if len(targetLangs) == 0 {
		logSuccess("All translations are complete!")
		return
	}

	logInfo("Provider: %s (%s), Model: %s", prov.Name, prov.ID, prov.Model)
	logInfo("Translating: %s", strings.Join(targetLangs, ", "))

	if a.dryRun {
		for _, lang := range targetLangs {
			path := proj.CatalogPath(lang)
			doc, err := tsfile.ParseFile(path)
			if err != nil {
				logError("Reading %s: %v", path, err)
				continue
			}
			logInfo("%s (%s): %d pending messages", lang, langmeta.NativeName(lang), len(doc.PendingMessages()))
		}
		return
	}

	// Create missing catalogs from the template before the run.
	var paths []string
	for _, lang := range targetLangs {
		path := proj.CatalogPath(lang)
		if !fileExists(path) {
			if proj.Template == "" {
				logWarning("Skipping %s: catalog missing and no template to create it from", lang)
				continue
			}
			if _, err := lconvert.CreateLanguageFile(context.Background(), proj.Template, path, lang); err != nil {
				logError("Creating %s: %v", path, err)
				continue
			}
			logInfo("Created %s from template", path)
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		logError("No catalogs to translate")
		os.Exit(1)
	}

	// Lock file: demote translations whose source string changed since they
	// were last translated, so they are re-offered this run.
	var lf *lockfile.LockFile
	if !a.noLock {
		lf, err = lockfile.Load(proj.RootDir)
		if err != nil {
			logWarning("Cannot read %s: %v", lockfile.LockFileName, err)
		} else {
			for _, path := range paths {
				if n := demoteStale(lf, proj.RootDir, path); n > 0 {
					logInfo("%s: %d stale translations re-offered", filepath.Base(path), n)
				}
			}
		}
	}

	// Graceful cancellation on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, saving progress...")
		cancel()
	}()

	opts := translate.Options{
		Provider:           prov,
		SourceLanguage:     proj.SourceLang,
		BatchSize:          pc.BatchSize,
		MaxConcurrentFiles: pc.MaxConcurrentFiles,
		ForceSerial:        pc.ForceSerial,
		RateLimitCount:     pc.RateLimitCount,
		RateLimitWindow:    time.Duration(pc.RateLimitWindowMs) * time.Millisecond,
		BatchDelay:         time.Duration(pc.BatchDelayMs) * time.Millisecond,
		Timeout:            a.timeout,
		MaxRetries:         pc.MaxRetries,
		KeepUnfinished:     pc.KeepUnfinished,
		Revalidate:         a.revalidate,
		SkipLanguageCheck:  pc.SkipLanguageCheck,
		Semantic:           pc.Semantic,
		Thresholds:         resolveThresholds(th),
		SystemPrompt:       a.prompt,
		Verbose:            a.verbose,
		OnProgress: func(path string, done, total int) {
			logInfo("  %s: %d/%d", filepath.Base(path), done, total)
		},
		OnLog:   logInfo,
		OnError: logError,
	}
	if a.rateCount > 0 {
		opts.RateLimitCount = a.rateCount
		opts.RateLimitWindow = a.rateWindow
	}
	if a.batchDelay > 0 {
		opts.BatchDelay = a.batchDelay
	}

	summary, err := translate.Run(ctx, paths, opts)

	// Record checksums for everything now finished, regardless of outcome;
	// partial progress was persisted per batch.
	if lf != nil {
		for _, path := range paths {
			updateLock(lf, proj.RootDir, path)
		}
		pruneLock(lf, proj.RootDir)
		if serr := lf.Save(); serr != nil {
			logWarning("Cannot write %s: %v", lockfile.LockFileName, serr)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			logWarning("Translation interrupted, partial progress saved")
			os.Exit(0)
		}
		logError("Translation failed: %v", err)
		os.Exit(1)
	}

	if a.revalidate {
		logSuccess("Revalidation complete: %d demoted to pending", summary.Rejected)
		return
	}
	logSuccess("Translation complete: %d translated, %d rejected, %d still pending",
		summary.Translated, summary.Rejected, summary.StillPending)
}

// applyTranslateFlags folds explicitly set flags over the file/env config
// and fills the args back from the merged result.
func applyTranslateFlags(cmd *cobra.Command, a *translateArgs, pc *config.PipelineConfig) {
	flags := cmd.Flags()

	if a.provider == "" {
		a.provider = pc.Provider
	}
	if a.model == "" {
		a.model = pc.Model
	}
	if a.baseURL == "" {
		a.baseURL = pc.BaseURL
	}
	if flags.Changed("batch-size") {
		pc.BatchSize = a.batchSize
	}
	if flags.Changed("max-concurrent") {
		pc.MaxConcurrentFiles = a.maxConcurrent
	}
	if flags.Changed("force-serial") {
		pc.ForceSerial = a.forceSerial
	}
	if flags.Changed("max-retries") {
		pc.MaxRetries = a.maxRetries
	}
	if flags.Changed("keep-unfinished") {
		pc.KeepUnfinished = a.keepUnfinished
	}
	if flags.Changed("validation") {
		switch a.validation {
		case "none":
			pc.SkipLanguageCheck = true
			pc.Semantic = false
		case "language":
			pc.SkipLanguageCheck = false
			pc.Semantic = false
		case "semantic":
			pc.SkipLanguageCheck = false
			pc.Semantic = true
		default:
			logError("Unknown validation mode %q (use none, language, or semantic)", a.validation)
			os.Exit(1)
		}
	}
}

// resolveThresholds converts the YAML threshold overrides into validator
// thresholds, keeping defaults for zero fields.
func resolveThresholds(tc config.ThresholdConfig) validate.Thresholds {
	th := validate.DefaultThresholds()
	if tc.MaxLengthRatio > 0 {
		th.MaxLengthRatio = tc.MaxLengthRatio
	}
	if tc.MaxRepeatRun > 0 {
		th.MaxRepeatRun = tc.MaxRepeatRun
	}
	if tc.MaxSingleCharLen > 0 {
		th.MaxSingleCharLen = tc.MaxSingleCharLen
	}
	if tc.LongSourceLen > 0 {
		th.LongSourceLen = tc.LongSourceLen
	}
	if tc.ShortTranslationLen > 0 {
		th.ShortTranslationLen = tc.ShortTranslationLen
	}
	if tc.EchoMinLen > 0 {
		th.EchoMinLen = tc.EchoMinLen
	}
	if tc.SimilarityCutoff > 0 {
		th.SimilarityCutoff = tc.SimilarityCutoff
	}
	return th
}

// ---------------------------------------------------------------------------
// Lock file integration
// ---------------------------------------------------------------------------

// demoteStale resets finished translations whose source content changed
// since the lock file last recorded them. Returns how many were demoted.
func demoteStale(lf *lockfile.LockFile, rootDir, path string) int {
	doc, err := tsfile.ParseFile(path)
	if err != nil {
		return 0
	}
	catalog := lockfile.CatalogKey(relPath(rootDir, path))

	demoted := 0
	for _, cx := range doc.Contexts {
		for _, msg := range cx.Messages {
			if !msg.Finished() || msg.Numerus {
				continue
			}
			key := lockfile.MessageKey(cx.Name, msg.Source)
			content := lockfile.MessageContent(msg.Source, msg.Comment)
			if lf.Has(catalog, key) && lf.IsChanged(catalog, key, content) {
				msg.SetTranslation("", true)
				demoted++
			}
		}
	}
	if demoted > 0 {
		if err := doc.WriteFile(path); err != nil {
			logWarning("Cannot rewrite %s: %v", path, err)
			return 0
		}
	}
	return demoted
}

// updateLock records checksums for all finished translations in a catalog
// and drops entries for messages no longer present.
// pruneLock drops lock entries for catalogs removed from the project.
func pruneLock(lf *lockfile.LockFile, rootDir string) {
	for _, c := range lf.Catalogs() {
		if !fileExists(filepath.Join(rootDir, filepath.FromSlash(c))) {
			lf.RemoveCatalog(c)
		}
	}
}

func updateLock(lf *lockfile.LockFile, rootDir, path string) {
	doc, err := tsfile.ParseFile(path)
	if err != nil {
		return
	}
	catalog := lockfile.CatalogKey(relPath(rootDir, path))

	entries := make(map[string]string)
	var current []string
	for _, cx := range doc.Contexts {
		for _, msg := range cx.Messages {
			key := lockfile.MessageKey(cx.Name, msg.Source)
			current = append(current, key)
			if msg.Finished() {
				entries[key] = lockfile.MessageContent(msg.Source, msg.Comment)
			}
		}
	}
	lf.UpdateBatch(catalog, entries)
	lf.Clean(catalog, current)
}

func relPath(rootDir, path string) string {
	if rel, err := filepath.Rel(rootDir, path); err == nil {
		return rel
	}
	return path
}

// ---------------------------------------------------------------------------
// auth (API key management)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys for all AI providers.

API key providers (paste your key):
  openai        OpenAI
  google        Google AI Studio (Gemini API key)
  anthropic     Anthropic
  groq          Groq Cloud (free tier available)
  custom-openai Custom OpenAI-compatible endpoint

No auth required:
  ollama        Local Ollama server

Examples:
  tsloc auth login                        Interactive provider selection
  tsloc auth login --provider openai      Store OpenAI API key
  tsloc auth logout --provider openai     Remove OpenAI API key
  tsloc auth logout                       Remove all credentials
  tsloc auth list                         Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// allProviders is the ordered list of providers for the interactive menu.
var allProviders = []struct {
	id   string
	name string
	desc string
	auth string // "api-key" or "none"
}{
	{"openai", "OpenAI", "gpt-4o family", "api-key"},
	{"google", "Google AI Studio", "Gemini API key, free tier available", "api-key"},
	{"anthropic", "Anthropic", "Claude models", "api-key"},
	{"groq", "Groq Cloud", "fast inference, free tier available", "api-key"},
	{"custom-openai", "Custom OpenAI", "any OpenAI-compatible endpoint", "api-key"},
	{"ollama", "Ollama", "local server, no auth needed", "none"},
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for an AI provider",
		Long: `Store an API key for an AI provider.

If --provider is not specified, you will be prompted to choose.`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider == "" {
				fmt.Fprintln(os.Stderr, "")
				fmt.Fprintf(os.Stderr, "%sSelect provider to configure:%s\n\n", colorBlue, colorReset)
				displayIdx := 0
				for _, p := range allProviders {
					if p.auth == "none" {
						continue // ollama needs no key
					}
					displayIdx++
					fmt.Fprintf(os.Stderr, "  %d. %s%-13s%s %s\n",
						displayIdx, colorYellow, p.id, colorReset, p.desc)
				}
				fmt.Fprintln(os.Stderr)
				fmt.Fprintf(os.Stderr, "Enter choice (number or name): ")

				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					logError("No input received")
					os.Exit(1)
				}
				choice := strings.TrimSpace(scanner.Text())

				found := false
				displayIdx = 0
				for _, p := range allProviders {
					if p.auth == "none" {
						continue
					}
					displayIdx++
					if choice == fmt.Sprintf("%d", displayIdx) || choice == p.id {
						provider = p.id
						found = true
						break
					}
				}
				if !found {
					logError("Invalid choice. Use: tsloc auth login --provider PROVIDER")
					os.Exit(1)
				}
			}

			switch provider {
			case "openai", "google", "anthropic", "groq":
				authLoginAPIKey(provider)
			case "custom-openai":
				authLoginCustomOpenAI()
			default:
				logError("Unknown provider '%s'. Run 'tsloc auth login' for options.", provider)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to configure")
	_ = cmd.RegisterFlagCompletionFunc("provider", authProviderCompletion)

	return cmd
}

func authProviderCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	completions := make([]string, 0, len(allProviders))
	for _, p := range allProviders {
		if p.auth == "none" {
			continue
		}
		completions = append(completions, fmt.Sprintf("%s\t%s", p.id, p.name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func authLoginAPIKey(providerID string) {
	providerInfo := map[string]struct {
		name    string
		helpURL string
		example string
	}{
		"openai": {
			name:    "OpenAI",
			helpURL: "https://platform.openai.com/api-keys",
			example: "tsloc translate --provider openai --model gpt-4o-mini",
		},
		"google": {
			name:    "Google AI Studio",
			helpURL: "https://aistudio.google.com/apikey",
			example: "tsloc translate --provider google --model gemini-2.0-flash",
		},
		"anthropic": {
			name:    "Anthropic",
			helpURL: "https://console.anthropic.com/settings/keys",
			example: "tsloc translate --provider anthropic --model claude-3-5-haiku-latest",
		},
		"groq": {
			name:    "Groq Cloud",
			helpURL: "https://console.groq.com/keys",
			example: "tsloc translate --provider groq --model llama-3.3-70b-versatile",
		},
	}

	info := providerInfo[providerID]

	fmt.Fprintf(os.Stderr, "\n%s%s API Key Setup%s\n", colorBlue, info.name, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	if info.helpURL != "" {
		fmt.Fprintf(os.Stderr, "  Get your API key from: %s%s%s\n\n", colorGreen, info.helpURL, colorReset)
	}

	existing := settings.GetAPIKey(providerID)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key: ")
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		logError("No input received")
		os.Exit(1)
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing != "" {
			logInfo("Keeping existing key")
			return
		}
		logError("No API key provided")
		os.Exit(1)
	}

	if err := settings.SetAPIKey(providerID, key); err != nil {
		logError("Failed to save API key: %v", err)
		os.Exit(1)
	}

	logSuccess("%s API key saved!", info.name)
	fmt.Fprintf(os.Stderr, "\n  You can now use: %s\n\n", info.example)
}

func authLoginCustomOpenAI() {
	fmt.Fprintf(os.Stderr, "\n%sCustom OpenAI-Compatible Endpoint%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)

	existing := settings.Get("custom-openai")
	if existing != nil && existing.BaseURL != "" {
		fmt.Fprintf(os.Stderr, "  Current endpoint: %s%s%s\n", colorYellow, existing.BaseURL, colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new endpoint URL, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter endpoint URL (e.g., https://api.example.com/v1): ")
	}

	if !scanner.Scan() {
		logError("No input received")
		os.Exit(1)
	}
	baseURL := strings.TrimSpace(scanner.Text())

	if baseURL == "" && existing != nil && existing.BaseURL != "" {
		baseURL = existing.BaseURL
	}
	if baseURL == "" {
		logError("Endpoint URL is required")
		os.Exit(1)
	}

	if existing != nil && existing.Key != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing.Key), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new API key, or press Enter to keep (leave empty for none): ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key (or press Enter if not required): ")
	}

	if !scanner.Scan() {
		logError("No input received")
		os.Exit(1)
	}
	apiKey := strings.TrimSpace(scanner.Text())

	if apiKey == "" && existing != nil {
		apiKey = existing.Key
	}

	if err := settings.SetAPIKeyWithBaseURL("custom-openai", apiKey, baseURL); err != nil {
		logError("Failed to save credentials: %v", err)
		os.Exit(1)
	}

	logSuccess("Custom OpenAI endpoint saved!")
	fmt.Fprintf(os.Stderr, "\n  You can now use: tsloc translate --provider custom-openai --model MODEL_NAME\n\n")
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored API keys",
		Long: `Remove stored API keys for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider != "" {
				if err := settings.Remove(provider); err != nil {
					logError("Failed to remove %s credentials: %v", provider, err)
					os.Exit(1)
				}
				logSuccess("%s credentials removed", provider)
				return
			}

			if err := settings.RemoveAll(); err != nil {
				logError("Failed to remove credentials: %v", err)
				os.Exit(1)
			}
			logSuccess("All stored credentials removed")
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", authProviderCompletion)

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%sStored Credentials%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			fmt.Fprintf(os.Stderr, "\n  %sAPI Key Providers%s\n", colorYellow, colorReset)
			for _, p := range allProviders {
				if p.auth == "none" {
					continue
				}
				entry := settings.Get(p.id)
				switch {
				case entry != nil && entry.Key != "":
					status := fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
					if entry.BaseURL != "" {
						status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
					}
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", p.id, status)
				case p.id == "custom-openai" && entry != nil && entry.BaseURL != "":
					// custom-openai may have just a URL, no key
					fmt.Fprintf(os.Stderr, "  %-14s %sconfigured%s (no key)\n  %14s endpoint: %s\n",
						p.id, colorGreen, colorReset, "", entry.BaseURL)
				default:
					fmt.Fprintf(os.Stderr, "  %-14s %snot configured%s\n", p.id, colorRed, colorReset)
				}
			}

			fmt.Fprintf(os.Stderr, "\n  %sEnvironment Variables%s\n", colorYellow, colorReset)
			envKey := os.Getenv("TSLOC_API_KEY")
			if envKey != "" {
				fmt.Fprintf(os.Stderr, "  TSLOC_API_KEY: %s%s%s (overrides stored keys)\n", colorGreen, settings.MaskKey(envKey), colorReset)
			} else {
				fmt.Fprintf(os.Stderr, "  TSLOC_API_KEY: %snot set%s\n", colorRed, colorReset)
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func resolveProvider(name, baseURL, apiKey, model, proxy string, timeout time.Duration) translate.Provider {
	defaults := translate.DefaultProviders()

	var prov translate.Provider
	if p, ok := defaults[strings.ToLower(name)]; ok {
		prov = p
	} else {
		prov = translate.Provider{
			ID:      translate.ProviderCustomOpenAI,
			Name:    name,
			BaseURL: name,
			Timeout: 60 * time.Second,
		}
	}

	if baseURL != "" {
		prov.BaseURL = baseURL
	} else if prov.ID == translate.ProviderCustomOpenAI {
		if storedURL := settings.GetBaseURL(prov.ID); storedURL != "" {
			prov.BaseURL = storedURL
		}
	}
	if apiKey != "" {
		prov.APIKey = apiKey
	}
	if model != "" {
		prov.Model = model
	}
	if proxy != "" {
		prov.Proxy = proxy
	}
	if timeout > 0 {
		prov.Timeout = timeout
	}

	return prov
}

func validateProvider(prov translate.Provider, apiKey string) error {
	if prov.Model == "" {
		modelExamples := map[string]string{
			translate.ProviderOpenAI:       "gpt-4o-mini, gpt-4o",
			translate.ProviderGoogle:       "gemini-2.0-flash, gemini-2.5-flash",
			translate.ProviderAnthropic:    "claude-3-5-haiku-latest, claude-sonnet-4-5",
			translate.ProviderGroq:         "llama-3.3-70b-versatile, mixtral-8x7b-32768",
			translate.ProviderOllama:       "llama3.2, qwen2.5, mistral",
			translate.ProviderCustomOpenAI: "gpt-4o, gpt-4o-mini (depends on your endpoint)",
		}

		examples := modelExamples[prov.ID]
		if examples == "" {
			examples = "check provider documentation"
		}

		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			prov.ID, prov.Name, examples, prov.ID)
	}

	switch prov.ID {
	case translate.ProviderOpenAI, translate.ProviderGoogle, translate.ProviderAnthropic, translate.ProviderGroq:
		if apiKey == "" {
			return fmt.Errorf("provider '%s' requires an API key\n\n"+
				"Option 1: Store your API key:\n"+
				"  tsloc auth login --provider %s\n\n"+
				"Option 2: Pass key directly:\n"+
				"  --api-key YOUR_KEY or export TSLOC_API_KEY=YOUR_KEY",
				prov.ID, prov.ID)
		}

	case translate.ProviderCustomOpenAI:
		if prov.BaseURL == "" {
			return fmt.Errorf("provider 'custom-openai' requires an endpoint URL\n\n" +
				"Option 1: Configure via auth:\n" +
				"  tsloc auth login --provider custom-openai\n\n" +
				"Option 2: Pass directly:\n" +
				"  --base-url https://api.example.com/v1")
		}

	case translate.ProviderOllama:
		client := &http.Client{Timeout: 2 * time.Second}
		ollamaURL := prov.BaseURL
		if ollamaURL == "" {
			ollamaURL = "http://localhost:11434"
		}
		resp, err := client.Get(ollamaURL + "/api/tags")
		if err != nil {
			return fmt.Errorf("provider 'ollama' requires an Ollama server to be running\n\n" +
				"Start Ollama with: ollama serve\n" +
				"Install from: https://ollama.com\n" +
				"Alternative providers:\n" +
				"  --provider openai          (requires API key)\n" +
				"  --provider google          (requires API key)")
		}
		resp.Body.Close()
	}

	return nil
}
