// Package timeofday разбирает и форматирует время суток в формате ЧЧ:ММ,
// которое используется для слотов напоминаний.
package timeofday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout формат времени суток (24 часа).
const Layout = "15:04"

// ErrInvalid возвращается, если строка не является корректным временем ЧЧ:ММ.
var ErrInvalid = errors.New("timeofday: invalid value")

// Parse проверяет строку и возвращает время в каноническом виде ЧЧ:ММ.
// Часы допускаются одной или двумя цифрами ("9:05" -> "09:05"), минуты ровно двумя.
func Parse(raw string) (string, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	hours, err := parseDigits(hh)
	if err != nil || hours >= 24 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	minutes, err := parseDigits(mm)
	if err != nil || minutes >= 60 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	return fmt.Sprintf("%02d:%02d", hours, minutes), nil
}

// FromTime возвращает время суток момента t, усечённое до минут.
func FromTime(t time.Time) string {
	return t.Format(Layout)
}

// parseDigits в отличие от strconv.Atoi не принимает знаки и пробелы.
func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
