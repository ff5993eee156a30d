package log

import (
	"fmt"
	"log/slog"
)

func Flow(name string) slog.Attr {
	return slog.String("flow", name)
}

func State(s fmt.Stringer) slog.Attr {
	return slog.String("state", s.String())
}

func Kind[T ~string](kind T) slog.Attr {
	return slog.String("kind", string(kind))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
