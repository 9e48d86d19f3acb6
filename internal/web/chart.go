package web

import (
	"fmt"

	"option-radar/internal/models"
	"option-radar/pkg/utils"
)

// Chart colours match the table legend.
const (
	callColor = "#f0883e"
	putColor  = "#3fb950"
)

const (
	chartWidth   = 760.0
	chartHeight  = 320.0
	chartLeft    = 64.0
	chartRight   = 16.0
	chartTop     = 36.0
	chartBottom  = 56.0
	chartTickCnt = 4
)

// barChart is the pre-computed geometry of the grouped CE/PE OI chart.
type barChart struct {
	Title    string
	Width    float64
	Height   float64
	Left     float64
	Baseline float64
	Right    float64
	Bars     []bar
	XLabels  []axisLabel
	YTicks   []axisLabel
	Empty    bool
}

type bar struct {
	X, Y, W, H float64
	Color      string
	Tooltip    string
}

type axisLabel struct {
	X, Y float64
	Text string
}

// buildChart lays out one bar pair per strike. Heights are scaled to the
// largest open interest in the window.
func buildChart(series []models.OIPoint, pcr models.PutCallRatio) barChart {
	c := barChart{
		Title:    "PCR: " + utils.FormatPCR(pcr.Ratio),
		Width:    chartWidth,
		Height:   chartHeight,
		Left:     chartLeft,
		Baseline: chartHeight - chartBottom,
		Right:    chartWidth - chartRight,
		Empty:    len(series) == 0,
	}
	if c.Empty {
		return c
	}

	var maxOI int64
	for _, p := range series {
		if p.CallOI > maxOI {
			maxOI = p.CallOI
		}
		if p.PutOI > maxOI {
			maxOI = p.PutOI
		}
	}
	if maxOI <= 0 {
		maxOI = 1
	}

	plotW := c.Right - c.Left
	plotH := c.Baseline - chartTop
	group := plotW / float64(len(series))
	barW := group * 0.36
	scale := func(v int64) float64 {
		if v < 0 {
			v = 0
		}
		return float64(v) / float64(maxOI) * plotH
	}

	for i, p := range series {
		x := c.Left + float64(i)*group + group*0.12
		strike := utils.FormatStrike(p.Strike)

		h := scale(p.CallOI)
		c.Bars = append(c.Bars, bar{
			X: x, Y: c.Baseline - h, W: barW, H: h,
			Color:   callColor,
			Tooltip: fmt.Sprintf("%s CE OI %s", strike, utils.FormatIndianNumber(p.CallOI)),
		})
		h = scale(p.PutOI)
		c.Bars = append(c.Bars, bar{
			X: x + barW, Y: c.Baseline - h, W: barW, H: h,
			Color:   putColor,
			Tooltip: fmt.Sprintf("%s PE OI %s", strike, utils.FormatIndianNumber(p.PutOI)),
		})
		c.XLabels = append(c.XLabels, axisLabel{
			X:    c.Left + float64(i)*group + group/2,
			Y:    c.Baseline + 18,
			Text: strike,
		})
	}

	for i := 0; i <= chartTickCnt; i++ {
		v := maxOI * int64(i) / chartTickCnt
		c.YTicks = append(c.YTicks, axisLabel{
			X:    c.Left - 8,
			Y:    c.Baseline - scale(v),
			Text: utils.FormatOI(v),
		})
	}
	return c
}
