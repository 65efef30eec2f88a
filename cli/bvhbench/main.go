// Package main is the bvhbench command itself.
package main

import (
	"os"

	"go.viam.com/bvh/cli"
	"go.viam.com/bvh/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Error(err)
		os.Exit(1)
	}
}
