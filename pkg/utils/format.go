// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatIndianNumber groups an integer the Indian way: 1,00,00,000.
func FormatIndianNumber(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := formatIndianNumber(strconv.FormatInt(n, 10))
	if neg {
		return "-" + s
	}
	return s
}

// formatIndianNumber formats an integer string in Indian numbering system.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPrice formats a price with two decimals.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatPCR formats put-call ratio.
func FormatPCR(pcr float64) string {
	return fmt.Sprintf("%.2f", pcr)
}

// FormatOI formats open interest in compact form.
func FormatOI(oi int64) string {
	abs := oi
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 10000000: // 1 crore
		return fmt.Sprintf("%.2f Cr", float64(oi)/10000000)
	case abs >= 100000: // 1 lakh
		return fmt.Sprintf("%.2f L", float64(oi)/100000)
	case abs >= 1000:
		return fmt.Sprintf("%.2f K", float64(oi)/1000)
	}
	return strconv.FormatInt(oi, 10)
}

// FormatStrike formats a strike without trailing decimals when integral.
func FormatStrike(strike float64) string {
	if strike == math.Trunc(strike) {
		return strconv.FormatInt(int64(strike), 10)
	}
	s := strconv.FormatFloat(strike, 'f', 2, 64)
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}

// PadLeft pads a string to the left.
func PadLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}
