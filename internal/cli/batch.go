package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidenceview/internal/notify"
	"github.com/ppiankov/evidenceview/internal/present"
	"github.com/ppiankov/evidenceview/internal/source"
	"github.com/ppiankov/evidenceview/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchAll     bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Show the evidence lists of many matches in parallel",
	Long: `Batch loads the evidences of several matches concurrently:
- Read match ids from the input file (one per line, # comments allowed),
  or take every match in the fixture when source.file is set and no
  input file is given
- Load each match with its own presenter on a bounded worker pool
- Rate limit requests to the evidence backend
- Print each list, or write one file per match with --output-dir

Example:
  evidenceview batch matches.txt
  evidenceview batch matches.txt --concurrency 8 --output-dir ./views -o json
  evidenceview batch --source-file fixtures.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one file per match to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "expand every list")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}

	ctx, cancel := withTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	if a.cfg.Output.Verbose {
		fmt.Fprintf(stderr, "  Input:        %s\n", batchInput(a, args))
		fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
		fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
		fmt.Fprintf(stderr, "\n")
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	opts := present.OptionsFromConfig(a.cfg.View)
	opts.Logger = a.logger
	// Failures are summarized below; the console only gets one line per match
	viewer := worker.PresenterViewer{Fetcher: a.fetcher, Notifier: notify.NewLogSink(a.logger), Options: opts, Expand: batchAll}

	limiter := worker.NewLimiter(a.cfg.RateLimiting.RequestsPerSecond, a.cfg.RateLimiting.BurstSize)
	processor := worker.NewBatchProcessor(viewer, workers, limiter, a.cfg.Source.BaseURL, a.logger)

	var results []*worker.ViewResult
	if len(args) == 1 {
		results, err = processor.ProcessFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("process file: %w", err)
		}
	} else {
		if a.cfg.Source.File == "" {
			return fmt.Errorf("no match file given and no source.file to enumerate")
		}
		ids, err := source.NewFileSource(a.cfg.Source.File).MatchIDs()
		if err != nil {
			return fmt.Errorf("list matches: %w", err)
		}
		slices.Sort(ids)
		results = processor.ProcessMatches(ctx, ids)
	}

	successCount := 0
	failureCount := 0
	out := cmd.OutOrStdout()

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.MatchID, result.Error)
			continue
		}
		successCount++

		if outputDir == "" {
			if err := a.renderer.Render(out, result.View); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}
			fmt.Fprintln(out)
			continue
		}

		path := filepath.Join(outputDir, sanitizeFilename(result.MatchID)+extension(a.cfg.Output.Format))
		if err := writeView(a, path, result.View); err != nil {
			failureCount++
			successCount--
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.MatchID, err)
			continue
		}
		if a.cfg.Output.Verbose {
			fmt.Fprintf(stderr, "✓ %s → %s\n", result.MatchID, path)
		}
	}

	fmt.Fprintf(stderr, "\nTotal: %d matches, %d loaded, %d failed\n", len(results), successCount, failureCount)
	return nil
}

func batchInput(a *app, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return a.cfg.Source.File + " (all matches)"
}

func writeView(a *app, path string, vm present.ViewModel) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return a.renderer.Render(f, vm)
}

func extension(format string) string {
	switch format {
	case "json":
		return ".json"
	case "markdown":
		return ".md"
	default:
		return ".txt"
	}
}

// sanitizeFilename makes a match id safe to use as a file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		s = "match"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
