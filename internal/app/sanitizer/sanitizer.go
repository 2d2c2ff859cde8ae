// Package sanitizer strips terminal control sequences from text that did not
// originate in this program: agent replies, channel frames and pasted input.
package sanitizer

import (
	"regexp"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// Mouse reports whose ESC was eaten by an earlier read still show up as
// bare "[<b;x;yM" fragments in pasted text.
var orphanedMousePattern = regexp.MustCompile(`\[<[0-9]+;[0-9]+;[0-9]+[Mm]`)

type Config struct {
	AllowNewlines      bool
	ReplaceNewlineWith string
	MaxRunes           int
}

func MultilineConfig() Config {
	return Config{AllowNewlines: true}
}

func SingleLineConfig() Config {
	return Config{ReplaceNewlineWith: " "}
}

type Sanitizer struct {
	config Config
}

func New(config Config) *Sanitizer {
	return &Sanitizer{config: config}
}

func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	input = xansi.Strip(input)
	input = orphanedMousePattern.ReplaceAllString(input, "")
	input = strings.ReplaceAll(input, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(input))
	count := 0
	for _, r := range input {
		if s.config.MaxRunes > 0 && count >= s.config.MaxRunes {
			break
		}
		switch {
		case r == '\n':
			if s.config.AllowNewlines {
				b.WriteRune(r)
			} else {
				b.WriteString(s.config.ReplaceNewlineWith)
			}
		case r == '\t':
			b.WriteByte(' ')
		case r < 32 || r == 127:
			continue
		default:
			b.WriteRune(r)
		}
		count++
	}
	return b.String()
}
