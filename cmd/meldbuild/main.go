// Package main provides the meldbuild command.
package main

import (
	"os"

	"github.com/leapstack-labs/meldbuild/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
