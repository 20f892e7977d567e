package core

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Warnings collects recoverable problems found while normalizing and planning.
// Every warning is also logged at warn level. A nil *Warnings discards.
type Warnings struct {
	mu     sync.Mutex
	logger *zap.Logger
	list   []string
}

// NewWarnings returns a sink logging to logger; nil logs nowhere.
func NewWarnings(logger *zap.Logger) *Warnings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warnings{logger: logger}
}

// Addf records a warning.
func (w *Warnings) Addf(format string, args ...any) {
	if w == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	w.mu.Lock()
	w.list = append(w.list, msg)
	w.mu.Unlock()
	w.logger.Warn(msg)
}

// Debugf logs a message that is not worth a warning.
func (w *Warnings) Debugf(format string, args ...any) {
	if w == nil {
		return
	}
	w.logger.Debug(fmt.Sprintf(format, args...))
}

// List returns a copy of the recorded warnings.
func (w *Warnings) List() []string {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.list...)
}
