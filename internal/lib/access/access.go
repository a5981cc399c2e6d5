// Package access хранит список администраторов бота.
package access

import "strings"

// List неизменяемый список идентификаторов администраторов.
type List struct {
	ids map[string]struct{}
}

// New создаёт список из идентификаторов; пустые значения и пробелы отбрасываются.
func New(ids []string) *List {
	l := &List{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		l.ids[id] = struct{}{}
	}
	return l
}

// IsAdmin сообщает, входит ли пользователь в список. Безопасен для nil.
func (l *List) IsAdmin(userID string) bool {
	if l == nil {
		return false
	}
	_, ok := l.ids[userID]
	return ok
}

// Len возвращает количество администраторов.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}
