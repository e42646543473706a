/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/labvault/cmd"
	"github.com/humaidq/labvault/logging"
)

func main() {
	logging.Init()

	app := &cli.Command{
		Name:  "labvault",
		Usage: "labvault - Blood test report vault",
		Commands: []*cli.Command{
			cmd.CmdStart,
			cmd.CmdMigrate,
			cmd.CmdExtract,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logging.Logger(logging.SourceApp).Fatal("Command failed", "error", err)
	}
}
