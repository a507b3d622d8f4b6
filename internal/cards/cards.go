package cards

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedLine reports an inference line that cannot be parsed.
var ErrMalformedLine = errors.New("malformed inference line")

const maxLineBytes = 4 << 20

// Card is one scanned catalog card.
type Card struct {
	Path string
	Text []rune
}

// FieldAlignment is an NER hypothesis that a field occupies [Start, End) of
// the card text.
type FieldAlignment struct {
	Label string
	Start int
	End   int
}

// Line is a parsed inference line.
type Line struct {
	Path       string
	Alignments []FieldAlignment
}

// ParseLine parses "path<TAB>label start end<TAB>...". Empty chunks are
// ignored; any chunk that is not exactly three fields with integer offsets
// fails the whole line.
func ParseLine(raw string) (Line, error) {
	raw = strings.TrimRight(raw, "\r\n")
	chunks := strings.Split(raw, "\t")
	path := strings.TrimSpace(chunks[0])
	if path == "" {
		return Line{}, fmt.Errorf("%w: missing card path", ErrMalformedLine)
	}
	line := Line{Path: path}
	for _, chunk := range chunks[1:] {
		parts := strings.Fields(chunk)
		if len(parts) == 0 {
			continue
		}
		if len(parts) != 3 {
			return Line{}, fmt.Errorf("%w: %s: alignment %q", ErrMalformedLine, path, chunk)
		}
		start, err := strconv.Atoi(parts[1])
		if err != nil {
			return Line{}, fmt.Errorf("%w: %s: start %q", ErrMalformedLine, path, parts[1])
		}
		end, err := strconv.Atoi(parts[2])
		if err != nil {
			return Line{}, fmt.Errorf("%w: %s: end %q", ErrMalformedLine, path, parts[2])
		}
		line.Alignments = append(line.Alignments, FieldAlignment{Label: parts[0], Start: start, End: end})
	}
	return line, nil
}

// GroupTexts slices each alignment out of text and groups the slices by
// label, preserving input order. Offsets outside the text are clamped and an
// inverted range yields an empty string.
func GroupTexts(text []rune, alignments []FieldAlignment) map[string][]string {
	out := make(map[string][]string)
	for _, a := range alignments {
		out[a.Label] = append(out[a.Label], slice(text, a.Start, a.End))
	}
	return out
}

func slice(text []rune, start, end int) string {
	start = clamp(start, len(text))
	end = clamp(end, len(text))
	if start >= end {
		return ""
	}
	return string(text[start:end])
}

// clamp resolves an offset the way sequence slicing does: negative values
// count from the end.
func clamp(offset, n int) int {
	if offset < 0 {
		offset += n
		if offset < 0 {
			return 0
		}
	}
	return min(offset, n)
}

// ReadLines reads every non-blank line from r in input order.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read inference lines: %w", err)
	}
	return lines, nil
}

// Window returns lines[offset:offset+limit] with bounds clamped. A limit of
// zero or less means no limit.
func Window(lines []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(lines) {
		return nil
	}
	lines = lines[offset:]
	if limit > 0 && limit < len(lines) {
		lines = lines[:limit]
	}
	return lines
}
