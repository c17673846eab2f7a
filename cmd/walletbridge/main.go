// Package main is the entry point for the walletbridge CLI.
// file: cmd/walletbridge/main.go
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
)

// Version information - should be set during build via ldflags.
var (
	Version    = "0.1.0-dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
