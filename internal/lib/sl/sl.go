// Package sl содержит вспомогательные функции для работы с логгером slog:
// единообразные ключи для ошибок, операций и пользователей.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil-ошибки возвращается пустая строка, чтобы логирование не паниковало.
//
// Пример:
//
//	log.Error("failed to add habit", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op помечает запись лога именем операции в формате "пакет.Функция".
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// User помечает запись лога идентификатором пользователя.
func User(id string) slog.Attr {
	return slog.String("user_id", id)
}
