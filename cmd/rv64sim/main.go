// Command rv64sim loads a flat binary image and drives the RV64 hart
// to completion. It is the host wrapper spec.md §1 treats as an
// external collaborator: no simulation logic lives here, only image
// loading, CLI plumbing, and diagnostic dumps.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/rvsim/rv64sim/internal/config"
	"github.com/rvsim/rv64sim/internal/dump"
	"github.com/rvsim/rv64sim/internal/hart"
)

// ExitError carries an explicit process exit code out of run, mirroring
// the teacher's initx.ExitError boundary between a typed failure and a
// raw error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("rv64sim exited with code %d", e.Code)
}

func main() {
	if err := run(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "rv64sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "optional YAML config overriding UART/trace behavior")
	steps := flag.Uint64("steps", 0, "stop after N steps, trapping steps included (0 = unbounded)")
	dumpState := flag.Bool("dump", false, "print register/CSR state on exit")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rv64sim [-config file] [-steps N] [-dump] <binary>")
		return &ExitError{Code: 2}
	}
	imagePath := flag.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.TraceLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	image, err := loadImage(imagePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", imagePath, err)
	}

	clint := hart.NewClint()
	plic := hart.NewPlic()

	var stdin io.Reader = os.Stdin
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer term.Restore(int(os.Stdin.Fd()), oldState)
		}
	}

	var stdout io.Writer = os.Stdout
	if !cfg.UARTEcho {
		stdout = io.Discard
	}

	uart := hart.NewUart(stdin, stdout, log)
	bus := hart.NewBus(clint, plic, uart)

	h := hart.New(image, bus, log)
	h.SetStopOnZero(true)
	log.Info("booting hart", "image", imagePath, "size", len(image), "pc", h.PC())

	runErr := h.Run(*steps)

	if *dumpState {
		colorize := term.IsTerminal(int(os.Stdout.Fd()))
		dump.All(os.Stdout, h, colorize)
	}

	if errors.Is(runErr, hart.ErrHalt) {
		log.Info("halted", "pc", h.PC())
		return nil
	}

	var trap *hart.Trap
	if errors.As(runErr, &trap) {
		log.Error("fatal trap", "cause", trap.Cause, "value", trap.Value, "pc", h.PC())
		return &ExitError{Code: 1}
	}
	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}
	return nil
}

// loadImage reads the flat binary image from disk, showing a progress
// bar for images large enough that a read is visibly slow.
func loadImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if info.Size() < 1<<20 {
		return io.ReadAll(f)
	}

	bar := progressbar.DefaultBytes(info.Size(), "loading image")
	defer bar.Close()

	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(io.TeeReader(f, bar), buf); err != nil {
		return nil, err
	}
	return buf, nil
}
