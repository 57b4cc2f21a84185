// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель: единообразно формировать структурированные поля лога.
package sl

import (
	"io"
	"log/slog"
	"os"
)

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil возвращается пустая строка, чтобы логирование не паниковало.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op возвращает атрибут с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// SetupLogger создаёт логгер по окружению: текстовый уровня debug для
// local и dev, JSON уровня info для prod.
func SetupLogger(env string) *slog.Logger {
	return NewLogger(env, os.Stdout)
}

// NewLogger то же, что SetupLogger, но пишет в w.
func NewLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
