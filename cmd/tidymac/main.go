// Package main provides the entry point for the tidymac CLI.
package main

import (
	"os"

	"github.com/jamesainslie/tidymac/pkg/tidymac/engine"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(engine.ExitCode(err))
	}
}
