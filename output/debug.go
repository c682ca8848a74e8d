package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/findyourpaths/phonespecs/utils"
)

type logState struct {
	prevLogger *slog.Logger
	logF       *os.File
}

// SetDefaultLogger makes the default logger write JSON lines at level to
// logPath and, when console is non-nil, pass every record on to console as
// well. console must not be the package's initial default handler, which
// writes back through the log package.
func SetDefaultLogger(logPath string, level slog.Level, console slog.Handler) (*logState, error) {
	if err := utils.EnsureParentDir(logPath); err != nil {
		return nil, fmt.Errorf("error preparing log file: %w", err)
	}
	logF, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file %q: %w", logPath, err)
	}

	var h slog.Handler = slog.NewJSONHandler(logF, &slog.HandlerOptions{Level: level})
	if console != nil {
		h = teeHandler{console, h}
	}
	logS := &logState{prevLogger: slog.Default(), logF: logF}
	slog.SetDefault(slog.New(h))
	return logS, nil
}

func RestoreDefaultLogger(logS *logState) {
	if logS == nil {
		return
	}
	slog.SetDefault(logS.prevLogger)
	logS.logF.Close()
}

// teeHandler hands each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := make(teeHandler, len(t))
	for i, h := range t {
		ret[i] = h.WithAttrs(attrs)
	}
	return ret
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	ret := make(teeHandler, len(t))
	for i, h := range t {
		ret[i] = h.WithGroup(name)
	}
	return ret
}
