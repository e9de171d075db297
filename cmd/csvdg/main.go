// Package main is the entry point for the csvdg binary.
package main

import (
	"os"

	"github.com/chrisskurda/csv-to-dg/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
