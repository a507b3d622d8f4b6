// Package results writes accepted matches to the two run output files.
//
// matching.txt holds one "path<TAB>record<TAB>score" line per matched card and
// alignment.txt holds the card path followed by one "<TAB>label start end"
// group per aligned field. Both files list cards in the same order. Output is
// staged in temporary files and renamed into place on Close, so a run that
// dies half way never leaves truncated results behind.
package results

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cardmatch/internal/matching"
)

// Output file names.
const (
	MatchingFile  = "matching.txt"
	AlignmentFile = "alignment.txt"
)

const tempSuffix = ".partial"

// Writer streams matches into the output directory.
type Writer struct {
	dir       string
	matching  *stagedFile
	alignment *stagedFile
	written   int
	closed    bool
}

type stagedFile struct {
	final string
	file  *os.File
	buf   *bufio.Writer
}

func createStaged(path string) (*stagedFile, error) {
	file, err := os.Create(path + tempSuffix)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	return &stagedFile{final: path, file: file, buf: bufio.NewWriter(file)}, nil
}

func (f *stagedFile) commit() error {
	if err := f.buf.Flush(); err != nil {
		_ = f.file.Close()
		return fmt.Errorf("flush %s: %w", filepath.Base(f.final), err)
	}
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(f.final), err)
	}
	if err := os.Rename(f.file.Name(), f.final); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(f.final), err)
	}
	return nil
}

// Create opens staged output files in dir, creating the directory if needed.
func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	m, err := createStaged(filepath.Join(dir, MatchingFile))
	if err != nil {
		return nil, err
	}
	a, err := createStaged(filepath.Join(dir, AlignmentFile))
	if err != nil {
		_ = m.file.Close()
		_ = os.Remove(m.file.Name())
		return nil, err
	}
	return &Writer{dir: dir, matching: m, alignment: a}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Written returns the number of results written so far.
func (w *Writer) Written() int {
	return w.written
}

// Write appends one result to both files.
func (w *Writer) Write(r matching.Result) error {
	if w.closed {
		return errors.New("results writer is closed")
	}
	if _, err := w.matching.buf.WriteString(FormatMatching(r)); err != nil {
		return fmt.Errorf("write %s: %w", MatchingFile, err)
	}
	if _, err := w.alignment.buf.WriteString(FormatAlignment(r)); err != nil {
		return fmt.Errorf("write %s: %w", AlignmentFile, err)
	}
	w.written++
	return nil
}

// Close flushes both files and moves them into place.
func (w *Writer) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(w.matching.commit(), w.alignment.commit())
}

// FormatMatching renders the matching.txt line for r.
func FormatMatching(r matching.Result) string {
	return r.CardPath + "\t" + r.RecordID + "\t" + strconv.Itoa(r.Score) + "\n"
}

// FormatAlignment renders the alignment.txt line for r.
func FormatAlignment(r matching.Result) string {
	var b strings.Builder
	b.WriteString(r.CardPath)
	for _, span := range r.Alignment {
		b.WriteByte('\t')
		b.WriteString(span.Label)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(span.Start))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(span.End))
	}
	b.WriteByte('\n')
	return b.String()
}
