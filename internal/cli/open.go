package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidenceview/internal/notify"
	"github.com/ppiankov/evidenceview/internal/present"
)

var (
	openTimeout time.Duration
	openAll     bool
	openCopy    bool
)

// openCmd represents the open command
var openCmd = &cobra.Command{
	Use:   "open <matchID> <evidenceID>",
	Short: "Resolve the source link of a displayed evidence",
	Long: `Open looks the evidence up among the records currently displayed for the
match and hands its source link on: printed to stdout, or copied to the
clipboard with --copy. Evidences hidden behind "view all" are not found
unless --all is given.

Example:
  evidenceview open a0X5g000001 ev-17
  evidenceview open a0X5g000001 ev-17 --all --copy`,
	Args: cobra.ExactArgs(2),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().BoolVar(&openAll, "all", false, "search the expanded list")
	openCmd.Flags().BoolVar(&openCopy, "copy", false, "copy the link to the clipboard")
	openCmd.Flags().DurationVar(&openTimeout, "timeout", time.Minute, "fetch timeout")
}

func runOpen(cmd *cobra.Command, args []string) error {
	matchID, evidenceID := args[0], args[1]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := withTimeout(cmd.Context(), openTimeout)
	defer cancel()

	var opener present.Opener = notify.NewWriterOpener(cmd.OutOrStdout())
	if openCopy {
		opener = notify.NewClipboardOpener(cmd.OutOrStdout(), a.logger)
	}

	p := a.presenter(opener)
	p.SetMatchID(ctx, matchID)
	if err := p.Err(); err != nil {
		return fmt.Errorf("load evidences for %s: %w", matchID, err)
	}
	if openAll {
		p.ViewAll()
	}

	if _, ok := p.OpenSource(evidenceID); !ok {
		return fmt.Errorf("%w: %s", present.ErrNotFound, evidenceID)
	}
	return nil
}
