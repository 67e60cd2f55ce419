// Package main provides the entry point for the tripstat CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/tripstat/cmd/tripstat/commands"
)

func main() {
	rootCmd := commands.NewRootCommand()

	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if commands.ShowsUsage(err) {
			fmt.Fprint(os.Stderr, cmd.UsageString())
		}

		os.Exit(1)
	}
}
