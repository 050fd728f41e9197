package logging

import (
	"github.com/junioryono/wired"
	"go.uber.org/zap"
)

// Zap adapts a *zap.Logger to wired.Logger. Arguments are alternating
// keys and values, as with slog.
type Zap struct {
	sugar *zap.SugaredLogger
}

var _ wired.Logger = (*Zap)(nil)

// NewZap wraps l. A nil l logs nothing.
func NewZap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{sugar: l.Sugar()}
}

func (z *Zap) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *Zap) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *Zap) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *Zap) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}
