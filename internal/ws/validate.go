package ws

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxTextLength bounds a text frame in runes.
const DefaultMaxTextLength = 1000

var (
	errEmptyText   = errors.New("text is empty")
	errNoLetters   = errors.New("text must contain Persian or English letters")
	errTooLongText = errors.New("text too long")
)

// validateText trims text and checks length and script.
func validateText(text string, maxLen int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyText
	}
	if n := utf8.RuneCountInString(text); n > maxLen {
		return "", fmt.Errorf("%w: %d > %d", errTooLongText, n, maxLen)
	}
	if !hasLetters(text) {
		return "", errNoLetters
	}
	return text, nil
}

func hasLetters(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF, r >= 0xFB50 && r <= 0xFDFF:
			return true
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			return true
		}
	}
	return false
}
