package layout

import (
	"errors"
	"fmt"
	"math"
	"os"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a keyboard configuration is structurally
// unusable (mismatched tables, duplicate positions, bad base layout).
// Use errors.Is(err, ErrInvalidConfig) to check for this error.
var ErrInvalidConfig = errors.New("invalid layout config")

// Hand identifies which hand serves a key.
type Hand int

const (
	LeftHand Hand = iota
	RightHand
)

func (h Hand) String() string {
	if h == LeftHand {
		return "left"
	}
	return "right"
}

// Other returns the opposite hand.
func (h Hand) Other() Hand {
	if h == LeftHand {
		return RightHand
	}
	return LeftHand
}

// Finger identifies the finger that serves a key. Values are ordered from the
// thumb outward, so comparing two fingers of one hand gives roll direction.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

func (f Finger) String() string {
	switch f {
	case Thumb:
		return "thumb"
	case Index:
		return "index"
	case Middle:
		return "middle"
	case Ring:
		return "ring"
	case Pinky:
		return "pinky"
	}
	return fmt.Sprintf("finger(%d)", int(f))
}

// MatrixPos locates a key on the logical key grid.
type MatrixPos struct {
	Col int
	Row int
}

// Pos locates a key on the physical board, in key-unit coordinates.
type Pos struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance to another position.
func (p Pos) Distance(other Pos) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Key describes one physical key of the keyboard.
type Key struct {
	Hand        Hand
	Finger      Finger
	Matrix      MatrixPos
	Pos         Pos
	Cost        float64 // intrinsic effort of striking this key
	Symmetry    int     // symmetry group index, mirrored keys share a group
	Unbalancing float64 // how far the key pulls the hand out of home position
}

// Config describes a keyboard: its keys, which key positions are fixed, and
// the base character assignment the key count is defined against.
type Config struct {
	Name  string
	Keys  []Key
	fixed []bool
	base  []rune
}

// configYAML is the on-disk representation. Every table is row-major and all
// tables must flatten to the same length.
type configYAML struct {
	Name            string        `yaml:"name"`
	MatrixPositions [][][]int     `yaml:"matrix_positions"`
	Positions       [][][]float64 `yaml:"positions"`
	Hands           [][]string    `yaml:"hands"`
	Fingers         [][]string    `yaml:"fingers"`
	KeyCosts        [][]float64   `yaml:"key_costs"`
	Symmetries      [][]int       `yaml:"symmetries"`
	Unbalancing     [][]float64   `yaml:"unbalancing_positions"`
	Fixed           [][]bool      `yaml:"fixed"`
	Base            []string      `yaml:"base"`
}

// LoadConfig reads and parses a keyboard configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML keyboard configuration and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var raw configYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse layout config: %v: %w", err, ErrInvalidConfig)
	}
	return buildConfig(raw)
}

func buildConfig(raw configYAML) (*Config, error) {
	matrix := flatten(raw.MatrixPositions)
	positions := flatten(raw.Positions)
	hands := flatten(raw.Hands)
	fingers := flatten(raw.Fingers)
	costs := flatten(raw.KeyCosts)
	symmetries := flatten(raw.Symmetries)
	unbalancing := flatten(raw.Unbalancing)

	n := len(matrix)
	if n == 0 {
		return nil, fmt.Errorf("no keys defined: %w", ErrInvalidConfig)
	}

	// All per-key tables must describe the same number of keys.
	tables := map[string]int{
		"positions":             len(positions),
		"hands":                 len(hands),
		"fingers":               len(fingers),
		"key_costs":             len(costs),
		"symmetries":            len(symmetries),
		"unbalancing_positions": len(unbalancing),
	}
	for name, length := range tables {
		if length != n {
			return nil, fmt.Errorf("table %s has %d entries, matrix_positions has %d: %w", name, length, n, ErrInvalidConfig)
		}
	}

	keys := make([]Key, n)
	seenMatrix := make(map[MatrixPos]int, n)
	seenPos := make(map[Pos]int, n)
	for i := 0; i < n; i++ {
		if len(matrix[i]) != 2 {
			return nil, fmt.Errorf("matrix position %d must be a [col, row] pair: %w", i, ErrInvalidConfig)
		}
		mp := MatrixPos{Col: matrix[i][0], Row: matrix[i][1]}
		if prev, ok := seenMatrix[mp]; ok {
			return nil, fmt.Errorf("duplicate matrix position (%d,%d) at keys %d and %d: %w", mp.Col, mp.Row, prev, i, ErrInvalidConfig)
		}
		seenMatrix[mp] = i

		if len(positions[i]) != 2 {
			return nil, fmt.Errorf("position %d must be an [x, y] pair: %w", i, ErrInvalidConfig)
		}
		pos := Pos{X: positions[i][0], Y: positions[i][1]}
		if prev, ok := seenPos[pos]; ok {
			return nil, fmt.Errorf("duplicate physical position (%g,%g) at keys %d and %d: %w", pos.X, pos.Y, prev, i, ErrInvalidConfig)
		}
		seenPos[pos] = i

		hand, err := parseHand(hands[i])
		if err != nil {
			return nil, fmt.Errorf("key %d: %v: %w", i, err, ErrInvalidConfig)
		}
		finger, err := parseFinger(fingers[i])
		if err != nil {
			return nil, fmt.Errorf("key %d: %v: %w", i, err, ErrInvalidConfig)
		}

		keys[i] = Key{
			Hand:        hand,
			Finger:      finger,
			Matrix:      mp,
			Pos:         pos,
			Cost:        costs[i],
			Symmetry:    symmetries[i],
			Unbalancing: unbalancing[i],
		}
	}

	fixed := flatten(raw.Fixed)
	if len(fixed) == 0 {
		fixed = make([]bool, n)
	} else if len(fixed) != n {
		return nil, fmt.Errorf("table fixed has %d entries, matrix_positions has %d: %w", len(fixed), n, ErrInvalidConfig)
	}

	var base []rune
	for _, row := range raw.Base {
		base = append(base, []rune(row)...)
	}
	if len(base) == 0 {
		return nil, fmt.Errorf("base layout is empty: %w", ErrInvalidConfig)
	}
	if len(base) != n {
		return nil, fmt.Errorf("base layout has %d characters for %d keys: %w", len(base), n, ErrInvalidConfig)
	}
	seenChars := make(map[rune]int, n)
	for i, r := range base {
		if unicode.IsSpace(r) {
			return nil, fmt.Errorf("base layout contains whitespace at key %d: %w", i, ErrInvalidConfig)
		}
		if prev, ok := seenChars[r]; ok {
			return nil, fmt.Errorf("duplicate base character %q at keys %d and %d: %w", r, prev, i, ErrInvalidConfig)
		}
		seenChars[r] = i
	}

	return &Config{
		Name:  raw.Name,
		Keys:  keys,
		fixed: fixed,
		base:  base,
	}, nil
}

func flatten[T any](rows [][]T) []T {
	var out []T
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func parseHand(s string) (Hand, error) {
	switch s {
	case "left", "l", "L":
		return LeftHand, nil
	case "right", "r", "R":
		return RightHand, nil
	}
	return 0, fmt.Errorf("unknown hand %q", s)
}

func parseFinger(s string) (Finger, error) {
	switch s {
	case "thumb", "t":
		return Thumb, nil
	case "index", "i":
		return Index, nil
	case "middle", "m":
		return Middle, nil
	case "ring", "r":
		return Ring, nil
	case "pinky", "p":
		return Pinky, nil
	}
	return 0, fmt.Errorf("unknown finger %q", s)
}

// KeyCount returns the number of keys on the keyboard.
func (c *Config) KeyCount() int {
	return len(c.Keys)
}

// BaseChars returns the base character assignment in key order.
func (c *Config) BaseChars() string {
	return string(c.base)
}

// BaseLayout returns the base character assignment as a layout.
func (c *Config) BaseLayout() Layout {
	l, err := fromRunes(c.base)
	if err != nil {
		// Base characters are validated at construction time.
		panic(fmt.Sprintf("layout: invalid base characters: %v", err))
	}
	return l
}

// PermutableKeys returns the indices of keys not declared fixed, ascending.
func (c *Config) PermutableKeys() []int {
	var keys []int
	for i, f := range c.fixed {
		if !f {
			keys = append(keys, i)
		}
	}
	return keys
}

// IsFixed reports whether the key at the given index is declared fixed.
func (c *Config) IsFixed(key int) bool {
	return c.fixed[key]
}
