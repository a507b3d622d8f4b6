package query

import (
	"slices"
	"testing"
)

func TestBuildRoutesAuthorAndTitle(t *testing.T) {
	q := Build(map[string][]string{
		"Author": {"Smith John"},
		"Title":  {"The Art of War"},
	}, DefaultOptions())

	want := []FuzzyTerm{
		{Field: "author1", Text: "smith", MaxEdits: 2},
		{Field: "author2", Text: "smith", MaxEdits: 2},
		{Field: "author1", Text: "john", MaxEdits: 2},
		{Field: "author2", Text: "john", MaxEdits: 2},
	}
	if !slices.Equal(q.Terms, want) {
		t.Fatalf("Terms = %+v, want %+v", q.Terms, want)
	}
}

func TestBuildDropsShortTokensAndEmptiesQuery(t *testing.T) {
	q := Build(map[string][]string{
		"Title": {"The Art of War"},
		"Date":  {"", "   "},
	}, DefaultOptions())
	if !q.Empty() {
		t.Fatalf("expected empty query, got %s", q)
	}
	if q.String() != "()" {
		t.Fatalf("String() = %q", q.String())
	}
}

func TestBuildFieldRoutingAndDedup(t *testing.T) {
	q := Build(map[string][]string{
		"Original_title": {"Zahrada zahrada"},
		"Publisher":      {"Orbis, Praha", "Orbis"},
	}, Options{MinTokenLength: 4, MaxEdits: 1, PrefixLength: 1})

	want := []FuzzyTerm{
		{Field: "original_title", Text: "zahrada", MaxEdits: 1, PrefixLength: 1},
		{Field: "publisher", Text: "orbis", MaxEdits: 1, PrefixLength: 1},
		{Field: "publisher", Text: "praha", MaxEdits: 1, PrefixLength: 1},
	}
	if !slices.Equal(q.Terms, want) {
		t.Fatalf("Terms = %+v, want %+v", q.Terms, want)
	}
}

func TestBuildCountsRunesNotBytes(t *testing.T) {
	q := Build(map[string][]string{"Author": {"Žák"}}, DefaultOptions())
	if !q.Empty() {
		t.Fatalf("three-rune token must be dropped, got %s", q)
	}
	q = Build(map[string][]string{"Author": {"Žáky"}}, DefaultOptions())
	if len(q.Terms) != 2 || q.Terms[0].Text != "žáky" {
		t.Fatalf("unexpected terms %+v", q.Terms)
	}
}

func TestQueryString(t *testing.T) {
	q := Query{Terms: []FuzzyTerm{
		{Field: "author1", Text: "smith", MaxEdits: 2},
		{Field: "title", Text: "hamlet", MaxEdits: 2},
	}}
	if got := q.String(); got != "(author1:smith~2 OR title:hamlet~2)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestFieldsFor(t *testing.T) {
	tests := map[string][]string{
		"Author":    {"author1", "author2"},
		"author":    {"author1", "author2"},
		"Title":     {"title"},
		"Publisher": {"publisher"},
		"Custom":    {"custom"},
	}
	for label, want := range tests {
		if got := FieldsFor(label); !slices.Equal(got, want) {
			t.Errorf("FieldsFor(%q) = %v, want %v", label, got, want)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	fields := map[string][]string{
		"Title":  {"Zahrada lesni"},
		"Author": {"Novak Jan"},
		"Date":   {"1931"},
	}
	first := Build(fields, DefaultOptions()).String()
	for i := 0; i < 20; i++ {
		if got := Build(fields, DefaultOptions()).String(); got != first {
			t.Fatalf("query changed between builds: %s vs %s", first, got)
		}
	}
}
