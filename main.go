// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for nod32tools.
//
// Usage:
//
//	go run . [flags]
//	./nod32tools key import -k LOGIN:PASSWORD
//
// See --help for the available commands.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/nod32mirror/nod32tools/internal/logging"
	"github.com/nod32mirror/nod32tools/ui/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		logging.Errorf("nod32tools: %v", err)
		stop()
		os.Exit(1)
	}
}
