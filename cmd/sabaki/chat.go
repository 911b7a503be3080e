package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harunnryd/sabaki/cmd/sabaki/runtime"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		signals := NewSignalHandler(context.Background())
		signals.Start()
		defer signals.Stop()

		return executeWithRuntime(signals.Context(), cmd, func(r *runtime.RuntimeComponents) error {
			if err := r.Start(); err != nil {
				return fmt.Errorf("failed to start runtime components: %w", err)
			}

			repl := runtime.NewREPL(r, os.Stdin, os.Stdout, runtime.NewRenderer(os.Stdout))
			done := make(chan error, 1)
			go func() { done <- repl.Start() }()

			select {
			case err := <-done:
				return err
			case <-r.Ctx.Done():
				// stdin read is still blocked; the process exits on return.
				return nil
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("mode", "m", "", "mode to start in (ask, edit, agent)")
}
