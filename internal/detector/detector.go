// Package detector handles memory image format detection.
package detector

import (
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/loader"
	"github.com/retroenv/z80analyser/internal/options"
)

// Detector handles image format detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new image format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the image format from options or file auto-detection.
// It first checks if a format is explicitly specified in options, otherwise
// attempts to detect the format from the input filename extension.
func (d *Detector) Detect(opts options.Program) loader.Format {
	format, ok := loader.FormatFromString(opts.ImageFormat)
	if !ok {
		format = d.detectFromFile(opts.Input)
		d.logger.Debug("Auto-detected image format",
			log.String("format", string(format)),
			log.String("file", opts.Input))
	}
	return format
}

// detectFromFile determines the image format based on file extension.
func (d *Detector) detectFromFile(filename string) loader.Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".sna":
		return loader.SNA
	default:
		// .bin, .raw, .code and unknown extensions are loaded as plain memory dumps
		return loader.Raw
	}
}
