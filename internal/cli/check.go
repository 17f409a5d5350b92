package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidenceview/internal/linkcheck"
	"github.com/ppiankov/evidenceview/internal/worker"
)

var (
	checkTimeout time.Duration
	checkAll     bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <matchID>",
	Short: "Check the source links of the displayed evidences",
	Long: `Check sends a HEAD request to the source link of every displayed evidence
and reports whether it is reachable, dead (404/410/unreachable) or
redirected. Transient failures are retried, requests are rate limited per
host and robots.txt is honored unless link_check.respect_robots is false.

The result is informational: it never changes which evidences are shown.

Example:
  evidenceview check a0X5g000001
  evidenceview check a0X5g000001 --all -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkAll, "all", false, "check the expanded list")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout (fetch and link checks)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	matchID := args[0]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := withTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	p := a.presenter(nil)
	p.SetMatchID(ctx, matchID)
	if err := p.Err(); err != nil {
		return fmt.Errorf("load evidences for %s: %w", matchID, err)
	}
	if checkAll {
		p.ViewAll()
	}
	vm := p.Snapshot()

	opts := linkcheck.OptionsFromConfig(a.cfg)
	opts.Limiter = worker.NewLimiter(a.cfg.RateLimiting.RequestsPerSecond, a.cfg.RateLimiting.BurstSize)
	opts.Logger = a.logger
	checker := linkcheck.NewChecker(opts)

	if a.cfg.Output.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚙️  Checking %d links...\n", len(vm.Evidences))
	}
	statuses := checker.Check(ctx, vm.Evidences)

	if err := a.renderer.RenderLinks(cmd.OutOrStdout(), vm, statuses); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
