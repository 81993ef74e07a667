package layout

import (
	"errors"
	"testing"
)

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("abc def")
	if err != nil {
		t.Fatalf("ParseLayout failed: %v", err)
	}

	if l.Size() != 6 {
		t.Errorf("Expected 6 keys, got %d", l.Size())
	}

	if l.String() != "abcdef" {
		t.Errorf("Expected abcdef, got %s", l.String())
	}

	if l.CharAt(3) != 'd' {
		t.Errorf("Expected d at key 3, got %c", l.CharAt(3))
	}
}

func TestParseLayoutDuplicate(t *testing.T) {
	_, err := ParseLayout("abca")
	if err == nil {
		t.Fatal("Expected error for duplicate character")
	}
	if !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Expected ErrInvalidLayout, got %v", err)
	}
}

func TestParseLayoutEmpty(t *testing.T) {
	_, err := ParseLayout("  \n ")
	if err == nil {
		t.Fatal("Expected error for empty layout")
	}
	if !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Expected ErrInvalidLayout, got %v", err)
	}
}

func TestLayoutKeyOf(t *testing.T) {
	l, err := ParseLayout("xyz")
	if err != nil {
		t.Fatalf("ParseLayout failed: %v", err)
	}

	key, ok := l.KeyOf('y')
	if !ok {
		t.Fatal("Expected y to be present")
	}
	if key != 1 {
		t.Errorf("Expected key 1, got %d", key)
	}

	if _, ok := l.KeyOf('q'); ok {
		t.Error("Expected q to be absent")
	}
}

func TestLayoutSwap(t *testing.T) {
	l, err := ParseLayout("abcd")
	if err != nil {
		t.Fatalf("ParseLayout failed: %v", err)
	}

	swapped := l.Swap(0, 3)

	if swapped.String() != "dbca" {
		t.Errorf("Expected dbca, got %s", swapped.String())
	}

	// Original layout must be untouched.
	if l.String() != "abcd" {
		t.Errorf("Swap modified the original layout: %s", l.String())
	}

	key, ok := swapped.KeyOf('a')
	if !ok || key != 3 {
		t.Errorf("Expected a at key 3 after swap, got %d (ok=%v)", key, ok)
	}
}

func TestLayoutEqual(t *testing.T) {
	a, _ := ParseLayout("abc")
	b, _ := ParseLayout("abc")
	c, _ := ParseLayout("acb")

	if !a.Equal(b) {
		t.Error("Expected identical layouts to be equal")
	}
	if a.Equal(c) {
		t.Error("Expected different layouts to be unequal")
	}
}
