// Package cli carries the application context from the root command to the
// subcommands: host file system, settings, logger and the image registry.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/internal/config"
	"github.com/ha1tch/tidisk/internal/logging"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// Env is passed explicitly to every command.
type Env struct {
	Fs       afero.Fs
	Settings *config.Settings
	Log      *zap.Logger
	Out      io.Writer

	registry *diskimg.Registry
}

// NewEnv returns an environment writing to out. A nil logger discards log
// output; nil settings are replaced by the defaults.
func NewEnv(fs afero.Fs, settings *config.Settings, logger *zap.Logger, out io.Writer) *Env {
	if settings == nil {
		settings = config.Default()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Env{Fs: fs, Settings: settings, Log: logging.OrNop(logger), Out: out}
}

// Registry returns the registry of open images, creating it on first use so
// that it picks up the logger configured by the root command.
func (e *Env) Registry() *diskimg.Registry {
	if e.registry == nil {
		e.registry = diskimg.NewRegistry(e.Fs, e.Log)
	}
	return e.registry
}

// ResolveError marks an image that could not be opened or a path that
// does not name anything on it. The command line reports these without a
// failure exit status.
type ResolveError struct {
	Err error
}

func (e *ResolveError) Error() string {
	return e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Open loads the image at path.
func (e *Env) Open(path string) (*diskimg.Handle, error) {
	h, err := e.Registry().Open(path)
	if err != nil {
		return nil, &ResolveError{Err: fmt.Errorf("failed to open disk %s: %w", path, err)}
	}
	return h, nil
}

// Directory resolves a directory path on v.
func (e *Env) Directory(v *diskimg.Volume, path string) (*diskimg.Directory, error) {
	d, err := v.Directory(path)
	if err != nil {
		return nil, &ResolveError{Err: err}
	}
	return d, nil
}

// File resolves a file path on v.
func (e *Env) File(v *diskimg.Volume, path string) (*diskimg.TFile, error) {
	f, err := v.File(path)
	if err != nil {
		return nil, &ResolveError{Err: err}
	}
	return f, nil
}

// Lookup resolves a path that may name a file or a directory.
func (e *Env) Lookup(v *diskimg.Volume, path string) (*diskimg.Directory, *diskimg.TFile, error) {
	d, f, err := v.Lookup(path)
	if err != nil {
		return nil, nil, &ResolveError{Err: err}
	}
	return d, f, nil
}

// Close releases a handle returned by Open.
func (e *Env) Close(h *diskimg.Handle) {
	e.Registry().Close(h)
}

// Save writes the volume of h back to its image.
func (e *Env) Save(h *diskimg.Handle) error {
	if err := e.Registry().Save(h); err != nil {
		return fmt.Errorf("failed to save disk %s: %w", h.Path, err)
	}
	return nil
}

// Printf writes to the command output.
func (e *Env) Printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format, args...)
}
