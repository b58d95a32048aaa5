// tilebake builds the tiles of a manifest and bakes them to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/config"
	"github.com/Faultbox/terratile/internal/logger"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, rest := args[0], args[1:]
	switch command {
	case "bake":
		err = cmdBake(ctx, cfg, rest)
	case "check", "validate":
		err = cmdCheck(cfg, rest)
	case "info":
		err = cmdInfo(rest)
	case "sample":
		err = cmdSample(rest)
	case "index", "ls":
		err = cmdIndex(ctx, cfg, rest)
	case "config":
		err = cmdConfig(cfg, rest)
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `tilebake - terrain tile baker

Usage:
  tilebake [global options] <command> [options]

Commands:
  bake [-level N] [-no-index]        Bake every tile in the manifest
  check                              Build every tile and report failures
  info <file.tile.zst>               Show artifact information
  sample <file.tile.zst> <col> <row> Print one collision height
  index                              List the bake index
  config [-save path]                Print or save the effective config

Global options:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Examples:
  tilebake -manifest tiles.yaml -assets ./art bake
  tilebake info baked/ridge.tile.zst
  tilebake sample baked/ridge.tile.zst 4 7`)
}
