package cli

import (
	"fmt"
	"strings"

	"option-radar/internal/models"
	"option-radar/pkg/utils"
)

const (
	ceGlyph = "█"
	peGlyph = "▒"
)

// renderBars draws the CE/PE open interest series as two horizontal bars
// per strike, scaled so the largest value spans width cells.
func renderBars(series []models.OIPoint, width int) []string {
	if len(series) == 0 || width <= 0 {
		return nil
	}

	var maxOI int64
	labelW := 0
	for _, p := range series {
		maxOI = max(maxOI, p.CallOI, p.PutOI)
		labelW = max(labelW, len(utils.FormatStrike(p.Strike)))
	}

	lines := make([]string, 0, 2*len(series)+1)
	lines = append(lines, fmt.Sprintf("%s CE OI  %s PE OI", ceGlyph, peGlyph))
	for _, p := range series {
		label := utils.PadLeft(utils.FormatStrike(p.Strike), labelW)
		lines = append(lines,
			fmt.Sprintf("%s CE %s %s", label, strings.Repeat(ceGlyph, barLen(p.CallOI, maxOI, width)), utils.FormatOI(p.CallOI)),
			fmt.Sprintf("%s PE %s %s", strings.Repeat(" ", labelW), strings.Repeat(peGlyph, barLen(p.PutOI, maxOI, width)), utils.FormatOI(p.PutOI)),
		)
	}
	return lines
}

// barLen scales v into [0, width]. Any positive value gets at least one cell.
func barLen(v, maxV int64, width int) int {
	if v <= 0 || maxV <= 0 {
		return 0
	}
	n := int(float64(v) / float64(maxV) * float64(width))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return n
}
