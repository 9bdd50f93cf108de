package gms

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/gms_browser/utils"
)

// LineSource feeds the parser one trimmed line at a time. The first line
// is additionally kept untrimmed because the file signature check is
// defined on the raw text.
type LineSource struct {
	firstRaw string
	lines    []string
	pos      int
}

func NewLineSource(data []byte) (*LineSource, error) {
	if len(data) == 0 {
		return nil, errors.Errorf("Empty file")
	}
	text := utils.BytesToString(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := strings.Split(text, "\n")

	ls := &LineSource{
		firstRaw: raw[0],
		lines:    make([]string, len(raw)),
	}
	for i := range raw {
		ls.lines[i] = strings.TrimSpace(raw[i])
	}
	return ls, nil
}

// FirstRaw returns the first line before whitespace trimming.
func (ls *LineSource) FirstRaw() string { return ls.firstRaw }

func (ls *LineSource) EOF() bool { return ls.pos >= len(ls.lines) }

// Line is the 1-based number of the next unread line.
func (ls *LineSource) Line() int { return ls.pos + 1 }

// Peek returns the trimmed line offset lines ahead of the cursor, or ""
// past the end of the file.
func (ls *LineSource) Peek(offset int) string {
	if ls.pos+offset >= len(ls.lines) {
		return ""
	}
	return ls.lines[ls.pos+offset]
}

// Read returns the trimmed line under the cursor and advances it.
func (ls *LineSource) Read() string {
	if ls.EOF() {
		return ""
	}
	line := ls.lines[ls.pos]
	ls.pos++
	return line
}

func (ls *LineSource) Skip() { ls.pos++ }
