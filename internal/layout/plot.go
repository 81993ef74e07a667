package layout

import (
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Plot renders a layout as a text grid derived from the keyboard's matrix
// positions. Keys appear at their column offsets, so staggered and split
// boards keep their shape. Wide glyphs are padded to keep columns aligned.
func (c *Config) Plot(l Layout) string {
	return c.plot(l, true)
}

// PlotCompact renders the layout grid without the surrounding frame.
func (c *Config) PlotCompact(l Layout) string {
	return c.plot(l, false)
}

func (c *Config) plot(l Layout, frame bool) string {
	if l.Size() != len(c.Keys) {
		return ""
	}

	// Cell width covers the widest glyph plus one space of separation.
	cellWidth := 2
	for _, r := range l.Runes() {
		if w := runewidth.RuneWidth(r) + 1; w > cellWidth {
			cellWidth = w
		}
	}

	rows := make(map[int][]int)
	maxCol := 0
	for i, key := range c.Keys {
		rows[key.Matrix.Row] = append(rows[key.Matrix.Row], i)
		if key.Matrix.Col > maxCol {
			maxCol = key.Matrix.Col
		}
	}

	rowNums := make([]int, 0, len(rows))
	for r := range rows {
		rowNums = append(rowNums, r)
	}
	sort.Ints(rowNums)

	var lines []string
	for _, r := range rowNums {
		keys := rows[r]
		sort.Slice(keys, func(a, b int) bool {
			return c.Keys[keys[a]].Matrix.Col < c.Keys[keys[b]].Matrix.Col
		})

		var sb strings.Builder
		col := 0
		for _, i := range keys {
			for col < c.Keys[i].Matrix.Col {
				sb.WriteString(strings.Repeat(" ", cellWidth))
				col++
			}
			sb.WriteString(runewidth.FillRight(string(l.CharAt(i)), cellWidth))
			col++
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))
	}

	body := strings.Join(lines, "\n")
	if !frame {
		return body
	}

	width := (maxCol + 1) * cellWidth
	border := "+" + strings.Repeat("-", width+2) + "+"
	var sb strings.Builder
	sb.WriteString(border)
	sb.WriteByte('\n')
	for _, line := range lines {
		pad := width - runewidth.StringWidth(line)
		if pad < 0 {
			pad = 0
		}
		sb.WriteString("| " + line + strings.Repeat(" ", pad) + " |\n")
	}
	sb.WriteString(border)
	return sb.String()
}
