package status

import (
	"context"
	"log/slog"
)

type LogRelay struct{ log *slog.Logger }

func NewLogRelay(l *slog.Logger) *LogRelay { return &LogRelay{log: l} }

func (r *LogRelay) Publish(ctx context.Context, ev Event) {
	level := slog.LevelInfo
	attrs := []any{"scope", ev.Scope, "action", ev.Action, "state", ev.State}
	if ev.State == StateError {
		level = slog.LevelWarn
		if ev.Err != nil {
			attrs = append(attrs, "err", ev.Err)
		}
	}
	r.log.Log(ctx, level, ev.Message, attrs...)
}
