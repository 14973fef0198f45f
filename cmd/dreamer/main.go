// Package main provides the entry point for the dreamer CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/raphaelgruber/dreamer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, cli.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
