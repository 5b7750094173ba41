// Package session owns all components of an analysis session and connects
// the emulator with the analysis, statistics and export components.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/analysis"
	"github.com/retroenv/z80analyser/internal/config"
	"github.com/retroenv/z80analyser/internal/consts"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/disasm"
	"github.com/retroenv/z80analyser/internal/emulator"
	"github.com/retroenv/z80analyser/internal/machine"
	"github.com/retroenv/z80analyser/internal/memory"
	"github.com/retroenv/z80analyser/internal/memstats"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/pok"
	"github.com/retroenv/z80analyser/internal/program"
	"github.com/retroenv/z80analyser/internal/report"
	"github.com/retroenv/z80analyser/internal/script"
	"github.com/retroenv/z80analyser/internal/snapshot"
)

// Session is a single analysis session of a memory image.
type Session struct {
	logger  *log.Logger
	options options.Analyser

	Memory    *memory.Memory
	Database  *database.Database
	Stats     *memstats.Stats
	Recorder  *analysis.State
	Machine   *emulator.Machine
	Snapshot  *snapshot.Engine
	Pool      *machine.Pool
	Tracer    *machine.Tracer
	Constants *consts.Consts
	Scripts   *script.Engine
}

// New creates a new session with an empty memory.
func New(logger *log.Logger, opts options.Analyser) (*Session, error) {
	constants, err := consts.New(consts.Spectrum48K{})
	if err != nil {
		return nil, fmt.Errorf("creating constants: %w", err)
	}

	mem := memory.New()
	db := database.New()
	stats := memstats.New(logger, mem)
	recorder := analysis.New(logger, mem, db)
	recorder.SetStackRange(opts.StackMin, opts.StackMax)

	pool := machine.NewPool()
	tracer := machine.NewTracer(mem, pool, machine.DefaultFrameCount)

	m := emulator.New(logger, mem, recorder, stats, tracer)
	m.SetTracer(tracer, emulator.DefaultInstructionsPerFrame)

	return &Session{
		logger:    logger,
		options:   opts,
		Memory:    mem,
		Database:  db,
		Stats:     stats,
		Recorder:  recorder,
		Machine:   m,
		Snapshot:  snapshot.New(mem),
		Pool:      pool,
		Tracer:    tracer,
		Constants: constants,
		Scripts:   script.New(logger, mem),
	}, nil
}

// Options returns the current analyser options of the session.
func (s *Session) Options() options.Analyser {
	return s.options
}

// ApplyGame applies the addresses, handlers, labels and comments of a game
// config to the session.
func (s *Session) ApplyGame(game *config.Game) error {
	if err := game.Validate(); err != nil {
		return fmt.Errorf("validating game config: %w", err)
	}

	s.options.LoadAddress = uint16(game.LoadAddress)
	s.options.StartAddress = uint16(game.StartAddress)
	s.options.HasStart = true
	s.options.StackMin = uint16(game.StackMin)
	s.options.StackMax = uint16(game.StackMax)
	s.options.IncludeVideoMemory = game.IncludeVideoMemory
	s.Recorder.SetStackRange(s.options.StackMin, s.options.StackMax)

	for _, h := range game.Handlers {
		if err := s.addHandler(h); err != nil {
			return err
		}
	}

	for _, l := range game.Labels {
		typ := database.CodeLabel
		switch {
		case l.Function:
			typ = database.FunctionLabel
		case l.Data:
			typ = database.DataLabel
		}
		if _, err := s.Database.AddLabel(uint16(l.Address), l.Name, typ); err != nil {
			return fmt.Errorf("adding label '%s': %w", l.Name, err)
		}
	}

	for _, c := range game.Comments {
		s.Database.SetCommentBlock(uint16(c.Address), c.Text)
	}

	s.logger.Debug("Applied game config",
		log.String("game", game.Name),
		log.Int("handlers", len(game.Handlers)),
		log.Int("labels", len(game.Labels)))
	return nil
}

func (s *Session) addHandler(h config.Handler) error {
	typ, err := memstats.ParseAccessType(h.Type)
	if err != nil {
		return fmt.Errorf("handler '%s': %w", h.Name, err)
	}

	handler := memstats.NewHandler(h.Name, typ, uint16(h.Start), uint16(h.End))
	handler.Break = h.Break
	if h.Script != "" {
		handler.Callback, err = s.Scripts.Callback(h.Name, h.Script)
		if err != nil {
			return err
		}
	}

	s.Stats.AddHandler(handler)
	return nil
}

// ApplyCheats pokes all cheats into memory. User defined values are set to
// the default value.
func (s *Session) ApplyCheats(cheats []pok.Cheat, userValue byte) {
	for _, cheat := range cheats {
		cheat.Apply(s.Memory, userValue)
		s.logger.Debug("Applied cheat", log.String("cheat", cheat.Description))
	}
}

// SetState sets the CPU registers, for example from a loaded snapshot.
func (s *Session) SetState(regs machine.Registers) {
	s.Machine.SetRegisters(regs)
}

// Run takes a memory snapshot and executes the given number of instructions.
// A debugger break requested by a handler stops the execution early and is
// not returned as error.
func (s *Session) Run(ctx context.Context, steps int) error {
	if s.options.HasStart {
		s.Machine.SetPC(s.options.StartAddress)
	}
	s.options.StartAddress = s.Machine.PC()
	s.Snapshot.Take(s.options.IncludeVideoMemory)

	s.logger.Debug("Running emulation",
		log.Hex("pc", s.Machine.PC()),
		log.Int("steps", steps))

	err := s.Machine.Run(ctx, steps)
	switch {
	case errors.Is(err, emulator.ErrBreak):
		s.logger.Info("Execution stopped by handler break",
			log.Hex("pc", s.Machine.PC()),
			log.Int("steps", s.Machine.Steps()))
	case err != nil:
		return fmt.Errorf("running emulation: %w", err)
	}

	s.Snapshot.Diff()
	return nil
}

// Analyse classifies the executed code, traces code statically from the
// entry points and converts the export range into a program.
func (s *Session) Analyse(ctx context.Context, name string, entries ...uint16) (*program.Program, error) {
	s.Stats.Analyse()

	dis := disasm.New(s.logger, s.Memory, s.Database, s.Stats, s.Constants, s.options)
	if err := dis.ProcessStatistics(ctx); err != nil {
		return nil, fmt.Errorf("processing statistics: %w", err)
	}
	if len(entries) > 0 {
		if err := dis.TraceCode(ctx, entries...); err != nil {
			return nil, fmt.Errorf("tracing code: %w", err)
		}
	}

	app, err := dis.Process(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("processing program: %w", err)
	}
	s.Database.ClearDirty()
	return app, nil
}

// Summary returns the results of the session for reporting.
func (s *Session) Summary(name string) report.Summary {
	return report.Summary{
		Name:      name,
		Steps:     s.Machine.Steps(),
		Analysis:  s.Stats.Analysis(),
		Functions: s.Recorder.Functions(),
		Handlers:  s.Stats.Handlers(),
		Changes:   s.Snapshot.Changes(),
	}
}

// Close releases the resources of the session.
func (s *Session) Close() {
	s.Scripts.Close()
}
