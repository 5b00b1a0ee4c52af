package models

import (
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrImmutableEntry — записи журнала нельзя менять или удалять.
var ErrImmutableEntry = errors.New("audit entries are append-only")

type choice[T comparable] struct {
	value T
	label string
}

// choiceSet — перечисление с порядком объявления и подписями для отображения.
type choiceSet[T comparable] struct {
	order  []T
	labels map[T]string
}

func newChoiceSet[T comparable](items ...choice[T]) choiceSet[T] {
	cs := choiceSet[T]{
		order:  make([]T, 0, len(items)),
		labels: make(map[T]string, len(items)),
	}
	for _, it := range items {
		cs.order = append(cs.order, it.value)
		cs.labels[it.value] = it.label
	}
	return cs
}

func (cs choiceSet[T]) has(v T) bool {
	_, ok := cs.labels[v]
	return ok
}

func (cs choiceSet[T]) label(v T) (string, bool) {
	l, ok := cs.labels[v]
	return l, ok
}

func (cs choiceSet[T]) values() []T {
	out := make([]T, len(cs.order))
	copy(out, cs.order)
	return out
}

// Slugify приводит название к коду из латиницы, цифр и дефисов.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// slugOrRandom — для кириллических названий slug получается пустым.
func slugOrRandom(name, prefix string, max int) string {
	slug := Slugify(name)
	if slug == "" {
		slug = prefix + "-" + uuid.NewString()[:8]
	}
	if max > 0 && len(slug) > max {
		slug = strings.TrimRight(slug[:max], "-")
	}
	return slug
}
