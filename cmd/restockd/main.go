// Package main is the entry point for restockd.
package main

import (
	"os"

	"github.com/restockd/restockd/cmd/restockd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
