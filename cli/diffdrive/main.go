// Package main is the diffdrive command.
package main

import (
	"os"

	"go.viam.com/diffdrive/cli"
	"go.viam.com/diffdrive/logging"
)

func main() {
	logger := logging.NewLogger("diffdrive")
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
