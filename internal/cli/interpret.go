package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultWidth = 80

var interpretRaw bool

var interpretCmd = &cobra.Command{
	Use:   "interpret [dream...]",
	Short: "Interpret a single dream",
	Long: `Interpret a single dream and print the analysis.

The dream is taken from the arguments, or read from stdin when no arguments
are given or the only argument is "-". Structured analyses are saved to the
session journal.

Examples:
  dreamer interpret "I was flying over a city made of glass"
  cat dream.txt | dreamer interpret
  dreamer interpret --raw - < dream.txt
  dreamer interpret --server ws://localhost:8585/ws "I lost my keys"`,
	RunE: runInterpret,
}

func init() {
	interpretCmd.Flags().BoolVar(&interpretRaw, "raw", false, "print the raw model reply")
}

func runInterpret(cmd *cobra.Command, args []string) error {
	dream, err := readDream(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(dream) == "" {
		return errors.New("please describe your dream first")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	result, err := sess.Interpret(ctx, dream)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), defaultTheme.errorStyle().Render(describeError(err)))
		return ErrReported
	}

	styled := stdoutIsTerminal()
	width := defaultWidth
	if styled {
		width = min(terminalWidth(defaultWidth), 120)
	}
	return writeAnalysis(cmd.OutOrStdout(), result, outputOptions{
		raw:    interpretRaw,
		styled: styled,
		width:  width,
	}, defaultTheme)
}

// readDream joins args into the dream text, or reads in when there are no
// args or the only one is "-".
func readDream(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && (len(args) != 1 || args[0] != "-") {
		return strings.Join(args, " "), nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no dream given: pass it as arguments or pipe it on stdin")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
