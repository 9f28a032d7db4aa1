// Package main provides the entry point for afriasset-cli.
//
// afriasset-cli manages signing keys and drives the registry API:
// initialization, minting, transfers, trades, burns and event history.
package main

import (
	"fmt"
	"os"

	"github.com/big14way/afri-asset/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
