// Package main is the relq command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/relq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
