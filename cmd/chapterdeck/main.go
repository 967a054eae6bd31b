// Command chapterdeck serves Markdown articles as paged chapter decks.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/chapterdeck/cmd/chapterdeck/commands"
)

const version = "0.1.0-dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
