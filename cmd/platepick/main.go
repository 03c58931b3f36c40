package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/kailas-cloud/platepick/internal/version"
)

func main() {
	ctx := context.Background()

	rootCmd := NewRootCmd(buildApp)
	if err := fang.Execute(ctx, rootCmd, fang.WithVersion(version.Version)); err != nil {
		os.Exit(1)
	}
}
