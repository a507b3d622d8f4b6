package results

import (
	"os"
	"path/filepath"
	"testing"

	"cardmatch/internal/matching"
	"cardmatch/internal/overlap"
)

var sample = matching.Result{
	CardPath: "cards/0001.jpg",
	RecordID: "r-shakes",
	Score:    3,
	Alignment: overlap.Alignment{
		{Label: "Author", Start: 0, End: 19},
		{Label: "Title", Start: 21, End: 27},
		{Label: "Date", Start: 36, End: 40},
	},
}

func TestFormat(t *testing.T) {
	if got := FormatMatching(sample); got != "cards/0001.jpg\tr-shakes\t3\n" {
		t.Fatalf("FormatMatching = %q", got)
	}
	want := "cards/0001.jpg\tAuthor 0 19\tTitle 21 27\tDate 36 40\n"
	if got := FormatAlignment(sample); got != want {
		t.Fatalf("FormatAlignment = %q, want %q", got, want)
	}
}

func TestWriterPublishesOnClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := sample
	second.CardPath = "cards/0002.jpg"
	second.RecordID = "r-2"
	second.Alignment = sample.Alignment[:1]
	second.Score = 1
	for _, r := range []matching.Result{sample, second} {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, MatchingFile)); !os.IsNotExist(err) {
		t.Fatalf("output published before Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.Written() != 2 {
		t.Fatalf("Written = %d", w.Written())
	}

	matchingOut, err := os.ReadFile(filepath.Join(dir, MatchingFile))
	if err != nil {
		t.Fatalf("read matching: %v", err)
	}
	if string(matchingOut) != "cards/0001.jpg\tr-shakes\t3\ncards/0002.jpg\tr-2\t1\n" {
		t.Fatalf("matching.txt = %q", matchingOut)
	}
	alignmentOut, err := os.ReadFile(filepath.Join(dir, AlignmentFile))
	if err != nil {
		t.Fatalf("read alignment: %v", err)
	}
	if string(alignmentOut) != FormatAlignment(sample)+"cards/0002.jpg\tAuthor 0 19\n" {
		t.Fatalf("alignment.txt = %q", alignmentOut)
	}
	if err := w.Write(sample); err == nil {
		t.Fatal("expected write after close to fail")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWriterEmptyRunStillPublishes(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, name := range []string{MatchingFile, AlignmentFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.Size() != 0 {
			t.Fatalf("%s: info=%v err=%v", name, info, err)
		}
	}
}
