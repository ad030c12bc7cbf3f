// Package main provides the provlens CLI entry point.
package main

import (
	"os"

	"github.com/provlens/provlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
