package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sandboxd/api"
	"sandboxd/engine"
)

func childExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "child-exec",
		Short:  "Internal command for joining a lite-isolation sandbox (handled before cobra parses args)",
		Hidden: true,
	}
}

// runCmd is the "run" subcommand: a one-shot run_code call against stdin,
// useful for local testing without standing up the HTTP server.
func runCmd() *cobra.Command {
	var language string
	var compileTimeout, runTimeout float64
	var flags engineFlags
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run one piece of code read from stdin and print the result as JSON",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if language == "" {
				return fmt.Errorf("--language is required")
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			code, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			svc := api.NewService(cfg, zerolog.New(os.Stderr).With().Timestamp().Logger(), nil)
			result, err := svc.RunCode(context.Background(), engine.RunRequest{
				Code: string(code), Language: engine.Language(language),
				CompileTimeout: compileTimeout, RunTimeout: runTimeout,
			})
			if err != nil {
				return fmt.Errorf("running code: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Status engine.RunStatus `json:"status"`
				engine.RunResult
			}{Status: result.Status(), RunResult: result})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Language tag, e.g. python, cpp, go")
	flags.applyFlags(cmd.Flags())
	cmd.Flags().Float64Var(&compileTimeout, "compile-timeout", 10, "Compile phase timeout in seconds")
	cmd.Flags().Float64Var(&runTimeout, "run-timeout", 10, "Run phase timeout in seconds")
	return cmd
}
