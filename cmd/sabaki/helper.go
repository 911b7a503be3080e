package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/sabaki/cmd/sabaki/runtime"

	"github.com/harunnryd/sabaki/internal/config"

	"github.com/spf13/cobra"
)

func executeWithRuntime(ctx context.Context, cmd *cobra.Command, fn func(*runtime.RuntimeComponents) error) error {
	loaded, err := loadConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if name, _ := cmd.Flags().GetString("mode"); name != "" {
		copied := *loaded
		copied.Modes.Default = name
		loaded = &copied
	}

	components, err := runtime.NewRuntimeBuilder().
		WithContext(ctx).
		WithConfig(loaded).
		Build()
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer components.Stop()

	return fn(components)
}

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}
