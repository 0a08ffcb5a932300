// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"go.uber.org/zap"
)

// Logger writes notices to a zap logger, mapping levels one to one
// (success is logged at info).
type Logger struct {
	log *zap.Logger
}

// NewLogger wraps l. A nil logger becomes a no-op logger.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{log: l.Named("notice")}
}

// Notify implements Notifier.
func (l *Logger) Notify(n Notice) {
	fields := []zap.Field{zap.String("level", n.Level.String())}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	switch n.Level {
	case LevelError:
		l.log.Error(n.Message, fields...)
	case LevelWarning:
		l.log.Warn(n.Message, fields...)
	default:
		l.log.Info(n.Message, fields...)
	}
}
