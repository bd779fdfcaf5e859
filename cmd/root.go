package cmd

import (
	"log"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"sandboxd/engine/isolation"
)

// Execute runs the command using program args and exits on failure.
func Execute() {
	// Take shortcut if second argument is child-exec, the namespaced
	// /proc/self/exe re-exec entrypoint. The workload's own exit code must
	// pass through unchanged so the outer runner records the real return
	// code.
	if len(os.Args) > 1 && os.Args[1] == "child-exec" {
		err := isolation.ExecChild(os.Args[2:])
		if exitErr, _ := err.(*exec.ExitError); exitErr != nil {
			os.Exit(exitErr.ExitCode())
		} else if err != nil {
			log.Fatalf("Unexpected child-exec error: %v", err)
		}
	} else if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandboxd",
		Short: "Multi-language code execution sandbox",
	}
	cmd.AddCommand(serveCmd(), runCmd(), diagCmd(), childExecCmd())
	return cmd
}
