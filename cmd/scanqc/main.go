// Command scanqc computes quality-control statistics of survey scans.
//
// Usage:
//
//	scanqc [command] [flags]
//
// Settings are read from .scanqc.yaml in the working or home directory,
// SCANQC_* environment variables (a .env file is loaded first) and flags.
//
// Examples:
//
//	scanqc fields
//	scanqc run 101 102 --workers 2 --seed 7
//	scanqc run 101 --output stats.parquet
//	scanqc noisefit --rate 50 tod.txt
//	scanqc version
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
