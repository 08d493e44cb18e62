package gcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Word may either give a command or provide an argument to a command.
type Word struct {
	letter rune
	number float64
	// The original string that declared this word, preserving letter casing and float point
	// representation.
	originalStr *string
}

// NewWord creates a Word from given letter and number.
// letter must be capitalised, or it'll panic.
func NewWord(letter rune, number float64) *Word {
	if letter < 'A' || letter > 'Z' {
		panic(fmt.Sprintf("bug: attempting to create word with letter not between A-Z: %c", letter))
	}
	return &Word{letter: letter, number: number}
}

// NewWordParse creates a Word from given letter and a raw number string.
func NewWordParse(letter rune, number string) (*Word, error) {
	if !unicode.IsLetter(letter) || letter > unicode.MaxASCII {
		return nil, fmt.Errorf("gcode: invalid word letter: %q", letter)
	}
	parsedNumber, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return nil, fmt.Errorf("gcode: invalid word number: %q: %w", number, err)
	}
	normalizeLetter := unicode.ToUpper(letter)
	originalStr := string(letter) + number
	return &Word{letter: normalizeLetter, number: parsedNumber, originalStr: &originalStr}, nil
}

// NewWordFromString parses a single word such as "G38.2", "m5" or "F1500".
func NewWordFromString(s string) (*Word, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return nil, fmt.Errorf("gcode: invalid word: %q", s)
	}
	return NewWordParse(rune(s[0]), s[1:])
}

func (w *Word) Letter() rune {
	return w.letter
}

func (w *Word) Number() float64 {
	return w.number
}

// String gives the representation of the word. If it was parsed, then it returns the exact
// original string, otherwise the normalized representation.
func (w *Word) String() string {
	if w.originalStr != nil {
		return *w.originalStr
	}
	return w.NormalizedString()
}

// NormalizedString is similar to String(), but always return a consistent representation using
// uppercase letters, single point float precision for commands and 4 points precision for arguments.
func (w *Word) NormalizedString() string {
	if w.IsCommand() {
		int, frac := math.Modf(w.number)
		if frac == 0 {
			return fmt.Sprintf("%c%.0f", w.letter, int)
		} else {
			return fmt.Sprintf("%c%.1f", w.letter, w.number)
		}
	}
	return fmt.Sprintf("%c%.4f", w.letter, w.number)
}

// IsCommand returns true if the word is a command (letter G or M).
func (w *Word) IsCommand() bool {
	return w.letter == 'G' || w.letter == 'M'
}
