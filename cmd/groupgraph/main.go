// Package main is the entry point for the groupgraph operator CLI.
package main

import (
	"os"

	"github.com/groupgraph/api/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
