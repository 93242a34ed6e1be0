// Package telnet is the line-oriented Telnet transport of the KNW actor
// server: option negotiation, input filtering, and ANSI styled output.
package telnet

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// ANSI escape sequences used by the sheet renderer.
const (
	Reset     = "\033[0m"
	Bold      = "\033[1m"
	Dim       = "\033[2m"
	Underline = "\033[4m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"

	BrightBlack  = "\033[90m"
	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightCyan   = "\033[96m"
	BrightWhite  = "\033[97m"
)

// Colorize wraps text with the given ANSI color code and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
// Postcondition: Returns text wrapped with the color code and Reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf wraps a formatted string with the given ANSI color code.
func Colorf(color, format string, args ...interface{}) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

// StripANSI removes all \033[...m sequences from s.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			if end := strings.IndexByte(s[i+2:], 'm'); end >= 0 {
				i += end + 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// VisibleWidth is the number of terminal cells s occupies once styling is
// removed. Wide and fullwidth runes count as two cells; ambiguous runes such
// as roman numerals count as one.
func VisibleWidth(s string) int {
	n := 0
	plain := StripANSI(s)
	for len(plain) > 0 {
		r, size := utf8.DecodeRuneInString(plain)
		plain = plain[size:]
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// PadRight appends spaces until s fills cells terminal cells. Styled text
// is measured by its visible width.
//
// Postcondition: VisibleWidth(result) == max(cells, VisibleWidth(s)).
func PadRight(s string, cells int) string {
	if w := VisibleWidth(s); w < cells {
		return s + strings.Repeat(" ", cells-w)
	}
	return s
}
