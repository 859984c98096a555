package rank

import (
	"testing"
	"time"

	"github.com/b-max/backend/internal/tender"
)

func testEngine(limit int) *Engine {
	e := NewEngine(limit)
	e.Scorer = fixedScorer(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return e
}

func TestSelectSpecificReferenceMatch(t *testing.T) {
	engine := testEngine(5)

	records := []tender.Tender{
		{Reference: "XYZ-777-2024", Title: "Renovation of sports grounds"},
		{Reference: "ABC-123-2024", Title: "Community Hall Renovation"},
		{Reference: "DEF-456-2024", Title: "Renovation of community hall annex"},
	}

	got := engine.Select("ABC-123 renovation", records, Preferences{})

	if len(got) != 1 {
		t.Fatalf("specific mode returned %d records, want 1", len(got))
	}
	if got[0].Tender.Reference != "ABC-123-2024" {
		t.Errorf("selected reference %q, want ABC-123-2024", got[0].Tender.Reference)
	}
}

func TestSelectSpecificTitleFallback(t *testing.T) {
	engine := testEngine(5)

	records := []tender.Tender{
		{Reference: "QQQ-111", Title: "Water reticulation upgrade phase two"},
		{Reference: "QQQ-222", Title: "Fleet management"},
	}

	got := engine.Select("tender number for water reticulation upgrade phase two", records, Preferences{})

	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Tender.Reference != "QQQ-111" {
		t.Errorf("selected %q, want QQQ-111", got[0].Tender.Reference)
	}
}

func TestSelectSpecificNoExactHitUsesScoreFloor(t *testing.T) {
	engine := testEngine(5)

	records := []tender.Tender{
		{Reference: "QQQ-222", Title: "Fleet management", Category: "Transport"},
	}

	// Identifier-shaped but matching nothing; the weak fuzzy score stays
	// under the floor, so nothing comes back.
	got := engine.Select("PPP-999", records, Preferences{})
	if len(got) != 0 {
		t.Errorf("expected no results under score floor, got %d", len(got))
	}
}

func TestSelectGeneralOrderingAndStability(t *testing.T) {
	engine := testEngine(10)

	records := []tender.Tender{
		{Title: "Office cleaning services", Category: "Cleaning"},
		{Title: "IT infrastructure maintenance", Category: "IT Services"},
		{Title: "Office cleaning services", Category: "Cleaning"},
	}

	got := engine.Select("office cleaning", records, Preferences{})
	if len(got) < 2 {
		t.Fatalf("got %d results, want at least 2", len(got))
	}

	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("results not sorted at %d: %.1f > %.1f", i, got[i].Score, got[i-1].Score)
		}
	}

	// The two identical cleaning records tie; scan order must hold.
	if got[0].Tender.Title != "Office cleaning services" || got[1].Tender.Title != "Office cleaning services" {
		t.Fatalf("cleaning records should rank first, got %q then %q", got[0].Tender.Title, got[1].Tender.Title)
	}
}

func TestSelectGeneralPreferredCategoryRanksFirst(t *testing.T) {
	engine := testEngine(10)

	records := []tender.Tender{
		{Title: "Road resurfacing", Category: "Construction"},
		{Title: "Network support contract", Category: "IT Services"},
		{Title: "Grass cutting", Category: "Grounds"},
		{Title: "Laptop procurement", Category: "IT Services"},
		{Title: "Catering for council events", Category: "Catering"},
	}
	prefs := Preferences{Categories: []string{"IT Services"}}

	got := engine.Select("IT services", records, prefs)
	if len(got) < 2 {
		t.Fatalf("got %d results, want at least 2", len(got))
	}

	if got[0].Tender.Category != "IT Services" || got[1].Tender.Category != "IT Services" {
		t.Errorf("preferred-category records should lead: got %q, %q",
			got[0].Tender.Category, got[1].Tender.Category)
	}
}

func TestSelectGeneralLimitAndZeroFilter(t *testing.T) {
	engine := testEngine(2)

	records := []tender.Tender{
		{Title: "Cleaning contract A", Category: "Cleaning"},
		{Title: "Cleaning contract B", Category: "Cleaning"},
		{Title: "Cleaning contract C", Category: "Cleaning"},
		{},
	}

	got := engine.Select("cleaning contract", records, Preferences{})
	if len(got) != 2 {
		t.Errorf("limit not applied: got %d results, want 2", len(got))
	}
	for _, match := range got {
		if match.Score <= 0 {
			t.Errorf("zero-score record leaked into results: %+v", match)
		}
	}
}

func TestSelectEmptyRecords(t *testing.T) {
	engine := testEngine(5)
	if got := engine.Select("anything", nil, Preferences{}); len(got) != 0 {
		t.Errorf("empty collection should yield no results, got %d", len(got))
	}
}

func TestLooksLikeIdentifierQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"ABC-123 renovation", true},
		{"RFQ2024 supply", true},
		{"what is the reference for the hall tender", true},
		{"tender number please", true},
		{"cleaning services in gauteng", false},
		{"IT services", false},
	}
	for _, tt := range tests {
		if got := looksLikeIdentifierQuery(tt.query); got != tt.want {
			t.Errorf("looksLikeIdentifierQuery(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
