// Package layout defines keyboard geometry and character-to-key assignments.
package layout

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidLayout is returned when a character assignment is not a valid
// bijection for the keyboard it is evaluated against.
// Use errors.Is(err, ErrInvalidLayout) to check for this error.
var ErrInvalidLayout = errors.New("invalid layout")

// Layout assigns one character to each key, identified by key index.
// Layouts are immutable values; Swap returns a new Layout.
type Layout struct {
	chars []rune
	index map[rune]int
}

// ParseLayout builds a layout from a character string. Whitespace separates
// rows for readability and is ignored. Returns ErrInvalidLayout if the string
// is empty or contains a duplicate character.
func ParseLayout(chars string) (Layout, error) {
	var rs []rune
	for _, r := range chars {
		if unicode.IsSpace(r) {
			continue
		}
		rs = append(rs, r)
	}
	return fromRunes(rs)
}

// FromRunes builds a layout from characters in key order, without the
// whitespace handling of ParseLayout.
func FromRunes(rs []rune) (Layout, error) {
	return fromRunes(rs)
}

func fromRunes(rs []rune) (Layout, error) {
	if len(rs) == 0 {
		return Layout{}, fmt.Errorf("layout has no characters: %w", ErrInvalidLayout)
	}
	index := make(map[rune]int, len(rs))
	for i, r := range rs {
		if prev, ok := index[r]; ok {
			return Layout{}, fmt.Errorf("duplicate character %q at keys %d and %d: %w", r, prev, i, ErrInvalidLayout)
		}
		index[r] = i
	}
	return Layout{chars: rs, index: index}, nil
}

// Size returns the number of keys covered by the layout.
func (l Layout) Size() int {
	return len(l.chars)
}

// CharAt returns the character assigned to the given key index.
func (l Layout) CharAt(key int) rune {
	return l.chars[key]
}

// KeyOf returns the key index holding the given character.
func (l Layout) KeyOf(c rune) (int, bool) {
	key, ok := l.index[c]
	return key, ok
}

// Swap returns a new layout with the characters at keys i and j exchanged.
func (l Layout) Swap(i, j int) Layout {
	chars := make([]rune, len(l.chars))
	copy(chars, l.chars)
	chars[i], chars[j] = chars[j], chars[i]

	index := make(map[rune]int, len(chars))
	for k, r := range chars {
		index[r] = k
	}
	return Layout{chars: chars, index: index}
}

// Runes returns a copy of the character assignment in key order.
func (l Layout) Runes() []rune {
	rs := make([]rune, len(l.chars))
	copy(rs, l.chars)
	return rs
}

// String returns the character assignment in key order.
func (l Layout) String() string {
	return string(l.chars)
}

// Equal reports whether two layouts assign the same characters to the same keys.
func (l Layout) Equal(other Layout) bool {
	if len(l.chars) != len(other.chars) {
		return false
	}
	for i, r := range l.chars {
		if other.chars[i] != r {
			return false
		}
	}
	return true
}
