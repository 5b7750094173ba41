// Package main implements the main entry point for a Z80 memory image analyser
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/cli"
	"github.com/retroenv/z80analyser/internal/config"
	"github.com/retroenv/z80analyser/internal/fileprocessor"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, analyserOptions, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	files, err := fileprocessor.GetFilesToProcess(&opts)
	if err != nil {
		logger.Fatal(err.Error())
	}

	failures, err := fileprocessor.ProcessFiles(ctx, logger, opts, analyserOptions, files)
	if errors.Is(err, context.Canceled) {
		logger.Info("Operation cancelled")
		return
	}
	for _, failure := range failures {
		logger.Error("Analysis failed", log.Err(failure.Err), log.String("file", failure.File))
	}
	if len(failures) > 0 {
		os.Exit(1)
	}
}
