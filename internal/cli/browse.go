package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/notify"
	"github.com/ppiankov/evidenceview/internal/present"
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse <matchID>",
	Short: "Interactively page through a match's evidences",
	Long: `Browse loads a match and reads commands from stdin:

  all           expand the list
  less          collapse the list
  refresh       refetch the evidences, bypassing the cache
  open <id>     print the source link of a displayed evidence
  match <id>    switch to another match
  help          list commands
  quit          exit

The list is re-rendered after every command.`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	p := a.presenter(notify.NewWriterOpener(out))

	s := &browseSession{app: a, presenter: p, out: out}
	p.SetMatchID(cmd.Context(), args[0])
	s.show()

	return s.run(cmd.Context(), cmd.InOrStdin())
}

type browseSession struct {
	app       *app
	presenter *present.Presenter
	out       io.Writer
}

func (s *browseSession) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if done := s.handle(ctx, fields[0], fields[1:]); done {
			return nil
		}
	}
}

// handle executes one command and reports whether the session should end
func (s *browseSession) handle(ctx context.Context, command string, args []string) bool {
	p := s.presenter

	switch strings.ToLower(command) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(s.out, "commands: all, less, refresh, open <id>, match <id>, help, quit")
		return false
	case "all":
		if !p.ViewAll() {
			fmt.Fprintln(s.out, "All evidences are already shown")
			return false
		}
	case "less":
		p.ShowLess()
	case "refresh":
		p.Refresh(ctx)
	case "open":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: open <evidenceID>")
			return false
		}
		p.OpenSource(args[0])
		return false
	case "match":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: match <matchID>")
			return false
		}
		if !p.SetMatchID(ctx, args[0]) {
			fmt.Fprintf(s.out, "Already showing %s\n", args[0])
			return false
		}
	default:
		fmt.Fprintf(s.out, "unknown command %q (try help)\n", command)
		return false
	}

	s.show()
	return false
}

func (s *browseSession) show() {
	if err := s.app.render(s.out, s.presenter); err != nil {
		s.app.logger.Warn("render failed", zap.Error(err))
	}
}
