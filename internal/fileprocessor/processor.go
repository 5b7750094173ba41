// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/pipeline"
)

// ProcessFile handles the complete file processing workflow
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program, analyserOptions options.Analyser) error {
	writer, err := createWriter(opts)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if closer, ok := writer.(io.Closer); ok && writer != os.Stdout {
			_ = closer.Close()
		}
	}()

	if _, err := pipeline.New(logger).Execute(ctx, opts, analyserOptions, writer); err != nil {
		return fmt.Errorf("analysing: %w", err)
	}
	return nil
}

// Failure is a file that could not be analysed.
type Failure struct {
	File string
	Err  error
}

// ProcessFiles analyses all files in order. A failing file does not stop the
// remaining ones, only a canceled context does. When more than one file is
// given every output is written next to its input file.
func ProcessFiles(ctx context.Context, logger *log.Logger, opts options.Program,
	analyserOptions options.Analyser, files []string) ([]Failure, error) {

	var failures []Failure
	for _, file := range files {
		fileOpts := opts
		fileOpts.Input = file
		if len(files) > 1 {
			fileOpts.Output = GenerateOutputFilename(file, analyserOptions.Format)
		}

		err := ProcessFile(ctx, logger, fileOpts, analyserOptions)
		switch {
		case err == nil:
			logger.Debug("File analysed", log.String("file", file), log.String("output", fileOpts.Output))
		case errors.Is(err, context.Canceled):
			return failures, err
		default:
			failures = append(failures, Failure{File: file, Err: err})
		}
	}
	return failures, nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// GenerateOutputFilename generates output filename for a given input file
// and output format.
func GenerateOutputFilename(inputFile, format string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + "." + format
}

func createWriter(opts options.Program) (io.Writer, error) {
	if opts.Output == "" {
		return os.Stdout, nil
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return file, nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("z80analyser", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
