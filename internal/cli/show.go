package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	showTimeout time.Duration
	showAll     bool
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <matchID>",
	Short: "Show the ranked evidence list of a match",
	Long: `Show fetches the evidences attached to a match and prints the
display-ready list:
- Evidences without a source link are dropped
- The rest are ordered by credibility (High, Medium, Low, unranked)
- Untitled evidences are named by position ("Evidence #2")
- Only the first --records evidences are shown unless --all is given

Example:
  evidenceview show a0X5g000001 --source-url https://aml.example.com/api
  evidenceview show a0X5g000001 --source-file fixtures.yaml --all
  evidenceview show a0X5g000001 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showAll, "all", false, "expand the list to every evidence")
	showCmd.Flags().DurationVar(&showTimeout, "timeout", time.Minute, "fetch timeout")
}

func runShow(cmd *cobra.Command, args []string) error {
	matchID := args[0]

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := withTimeout(cmd.Context(), showTimeout)
	defer cancel()

	p := a.presenter(nil)
	p.SetMatchID(ctx, matchID)
	if showAll {
		p.ViewAll()
	}

	if err := a.render(cmd.OutOrStdout(), p); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if err := p.Err(); err != nil {
		return fmt.Errorf("load evidences for %s: %w", matchID, err)
	}
	return nil
}
