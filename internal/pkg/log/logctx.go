package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт request-scoped логгер в контекст; дочерний контекст может
// перекрыть логгер родителя, не затрагивая его.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста. Если логгера там нет (или лежит
// мусор/nil), возвращает slog.Default(): вызывающий код всегда получает
// рабочий логгер.
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	return slog.Default()
}
