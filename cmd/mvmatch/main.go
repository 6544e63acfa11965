// Package main provides the entry point for the mvmatch CLI.
package main

import (
	"os"

	"github.com/openrecon/mvmatch/cmd/mvmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
