// Package pipeline orchestrates the analysis workflow stages.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/assembler"
	"github.com/retroenv/z80analyser/internal/assembler/asm"
	"github.com/retroenv/z80analyser/internal/assembler/skool"
	"github.com/retroenv/z80analyser/internal/config"
	"github.com/retroenv/z80analyser/internal/detector"
	"github.com/retroenv/z80analyser/internal/loader"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/pok"
	"github.com/retroenv/z80analyser/internal/program"
	"github.com/retroenv/z80analyser/internal/report"
	"github.com/retroenv/z80analyser/internal/session"
	"github.com/retroenv/z80analyser/internal/verification"
	"github.com/retroenv/z80analyser/internal/writer"
)

// fileWriterConstructor creates the output writer of an output format.
type fileWriterConstructor func(app *program.Program, options options.Analyser, mainWriter io.Writer) writer.AssemblerWriter

// Pipeline orchestrates the complete analysis workflow.
type Pipeline struct {
	logger        *log.Logger
	detector      *detector.Detector
	loader        *loader.Loader
	summaryWriter io.Writer
}

// New creates a new analysis pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:        logger,
		detector:      detector.New(logger),
		loader:        loader.New(),
		summaryWriter: os.Stdout,
	}
}

// SetSummaryWriter sets the writer that memory use summaries are printed to.
func (p *Pipeline) SetSummaryWriter(w io.Writer) {
	p.summaryWriter = w
}

// Execute runs the complete analysis pipeline.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, analyserOpts options.Analyser, writer io.Writer) (*program.Program, error) {
	var game *config.Game
	if opts.Config != "" {
		var err error
		game, err = config.LoadGame(opts.Config)
		if err != nil {
			return nil, fmt.Errorf("loading game config: %w", err)
		}

		// files referenced by the config are relative to the config file
		baseDir := filepath.Dir(opts.Config)
		if opts.Input == "" && game.SnapshotFile != "" {
			opts.Input = resolvePath(baseDir, game.SnapshotFile)
		}
		if opts.Pok == "" && game.PokFile != "" {
			opts.Pok = resolvePath(baseDir, game.PokFile)
		}
	}
	if opts.Input == "" {
		return nil, fmt.Errorf("no input file given")
	}

	format := p.detector.Detect(opts)
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	return p.ExecuteWithImage(ctx, data, format, game, opts, analyserOpts, writer)
}

// ExecuteWithImage runs the analysis pipeline with pre-loaded image data.
// This is useful for testing and programmatic usage where the image is already in memory.
// The game config is optional.
func (p *Pipeline) ExecuteWithImage(ctx context.Context, data []byte, format loader.Format, game *config.Game,
	opts options.Program, analyserOpts options.Analyser, writer io.Writer) (*program.Program, error) {

	newFileWriter, err := p.initializeAssembler(analyserOpts.Format)
	if err != nil {
		return nil, fmt.Errorf("initializing assembler: %w", err)
	}

	s, err := session.New(p.logger, analyserOpts)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	defer s.Close()

	if game != nil {
		if err := s.ApplyGame(game); err != nil {
			return nil, fmt.Errorf("applying game config: %w", err)
		}
	}

	image, err := p.loader.LoadFromBytes(data, format, s.Options().LoadAddress, s.Memory)
	if err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}
	if image.HasState {
		s.SetState(image.Registers)
	} else {
		s.Machine.SetPC(image.Start)
	}

	p.printInfo(opts, image, s.Options())

	if opts.Pok != "" {
		if err := p.applyCheats(s, opts.Pok); err != nil {
			return nil, err
		}
	}

	if err := s.Run(ctx, analyserOpts.MaxSteps); err != nil {
		return nil, fmt.Errorf("emulating: %w", err)
	}

	name := filepath.Base(opts.Input)
	app, err := s.Analyse(ctx, name, analyserOpts.Entries...)
	if err != nil {
		return nil, fmt.Errorf("analysing: %w", err)
	}

	if opts.Verify {
		if err := verification.VerifyOutput(p.logger, app, s.Memory); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}

	fileWriter := newFileWriter(app, s.Options(), writer)
	if err := fileWriter.Write(); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}

	if opts.Summary {
		if err := report.New(p.summaryWriter).Write(s.Summary(name)); err != nil {
			return nil, fmt.Errorf("writing summary: %w", err)
		}
	}

	return app, nil
}

// initializeAssembler returns the file writer constructor for the specified output format.
func (p *Pipeline) initializeAssembler(format string) (fileWriterConstructor, error) {
	switch strings.ToLower(format) {
	case assembler.Asm:
		return asm.New, nil
	case assembler.Skool:
		return skool.New, nil
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}
}

func (p *Pipeline) applyCheats(s *session.Session, fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("opening cheat file %s: %w", fileName, err)
	}
	defer func() { _ = file.Close() }()

	cheats, err := pok.Parse(file)
	if err != nil {
		return fmt.Errorf("parsing cheat file %s: %w", fileName, err)
	}

	s.ApplyCheats(cheats, 0)
	p.logger.Debug("Applied cheat file",
		log.String("file", fileName),
		log.Int("cheats", len(cheats)))
	return nil
}

// printInfo prints information about the image being processed.
func (p *Pipeline) printInfo(opts options.Program, image *loader.Image, analyserOpts options.Analyser) {
	if opts.Quiet {
		return
	}

	switch image.Format {
	case loader.SNA:
		p.logger.Info("Processing ZX Spectrum snapshot",
			log.String("file", opts.Input),
			log.Hex("pc", image.Registers.PC),
			log.String("format", analyserOpts.Format),
		)

	default:
		p.logger.Info("Processing raw memory image",
			log.String("file", opts.Input),
			log.Hex("load", image.Start),
			log.Int("size", image.Size),
			log.String("format", analyserOpts.Format),
		)
	}
}

func resolvePath(baseDir, fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(baseDir, fileName)
}
