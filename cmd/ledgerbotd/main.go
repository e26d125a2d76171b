package main

import (
	"os"

	"github.com/ledgerbot-dev/ledgerbot/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
