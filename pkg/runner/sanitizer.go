package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds an objective to 4KB.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "REPLAN_MAX_INPUT_SIZE"
)

var (
	ErrEmptyInput    = errors.New("objective is empty")
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeObjective prepares a user objective for a run: surrounding
// whitespace is trimmed, then SanitizeInput applies. A blank objective is
// rejected before any oracle is asked to plan for it.
func SanitizeObjective(objective string) (string, error) {
	clean, err := SanitizeInput(strings.TrimSpace(objective))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(clean) == "" {
		return "", ErrEmptyInput
	}
	return clean, nil
}

// SanitizeInput enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return. Oversized input is
// rejected rather than truncated.
func SanitizeInput(input string) (string, error) {
	if limit := maxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
