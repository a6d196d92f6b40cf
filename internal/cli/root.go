package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"assettree/internal/core"

	"github.com/spf13/cobra"
)

var (
	ErrUnresolved    = errors.New("one or more names could not be resolved")
	ErrExampleFailed = errors.New("example checks failed")
)

// NewRootCmd returns the assettree command tree.
func NewRootCmd(name, shortDesc string) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           name,
		Short:         shortDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log_level", "warn", "Set the log level (debug, info, warn, error)")

	cmd.PersistentPreRunE = func(cc *cobra.Command, _ []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cc.ErrOrStderr(), &slog.HandlerOptions{
			Level: level,
		})))
		return nil
	}

	cmd.AddCommand(NewLookupCmd(), NewExampleCmd())

	return cmd
}

// NewLookupCmd returns the lookup command.
func NewLookupCmd() *cobra.Command {
	var (
		depth  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "lookup <root> <name>...",
		Short: "Resolve names locally and globally under a root directory",
		RunE: func(cc *cobra.Command, args []string) error {
			req, err := core.ParseArgs(args, depth)
			if err != nil {
				return err
			}

			tree := req.NewTree()
			slog.Debug("tree constructed",
				"root", tree.Path(),
				"alive", tree.IsAlive(),
				"nodes", tree.Len(),
			)

			report := core.NewReport(tree, req.Names)

			if asJSON {
				enc := json.NewEncoder(cc.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("failed to encode report: %w", err)
				}
			} else if err := report.WriteText(cc.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			if report.Failed() {
				return ErrUnresolved
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Directory levels to attach below the root (-1 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

// NewExampleCmd returns the example command.
func NewExampleCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "example",
		Short: "Run the bundled parent/child/childchild example",
		Args:  cobra.NoArgs,
		RunE: func(cc *cobra.Command, _ []string) error {
			checks, err := core.RunExample(dir)
			if err != nil {
				return err
			}

			failed := 0
			for _, c := range checks {
				mark := "✓"
				if !c.Passed() {
					mark = "✗"
					failed++
				}
				cc.Printf("%s %s (expected %v, got %v)\n", mark, c.Description, c.Expected, c.Got)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrExampleFailed, failed, len(checks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to create the temporary example layout in (default: system temp dir)")

	return cmd
}
