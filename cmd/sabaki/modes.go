package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/sabaki/cmd/sabaki/runtime"
	"github.com/harunnryd/sabaki/internal/mode/formatter"

	"github.com/spf13/cobra"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List modes available with the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		format, err := formatter.ParseOutputFormat(formatName)
		if err != nil {
			return err
		}
		f, err := formatter.NewFormatterFactory().Create(format)
		if err != nil {
			return err
		}

		return executeWithRuntime(context.Background(), cmd, func(r *runtime.RuntimeComponents) error {
			infos := r.Modes.AllModesInfo()
			if len(infos) == 0 {
				fmt.Println("No modes are available. Check models.registry and provider API keys.")
				return nil
			}
			out, err := f.FormatModes(infos)
			if err != nil {
				return fmt.Errorf("failed to format modes: %w", err)
			}
			fmt.Println(out)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modesCmd)
	modesCmd.Flags().StringP("format", "f", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
	modesCmd.Flags().StringP("mode", "m", "", "mode to mark as active")
}
