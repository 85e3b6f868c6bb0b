package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errGatesFailed) {
			fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qtrack",
		Short:         "Quality gates, metrics and QA tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Без подкоманды запускаем сервис
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(), newGatesCmd())
	return root
}
