package rank

import (
	"testing"
	"time"

	"github.com/b-max/backend/internal/tender"
)

func fixedScorer(now time.Time) Scorer {
	return Scorer{Weights: DefaultWeights(), Now: func() time.Time { return now }}
}

func TestScoreReferenceTierDominates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	scorer := fixedScorer(now)

	byRef := tender.Tender{Reference: "ABC-123-2024", Title: "Fence repairs"}
	byTitle := tender.Tender{Reference: "ZZZ-999", Title: "Community hall renovation project", Category: "Construction"}

	refScore, refReasons := scorer.Score(byRef, "ABC-123 renovation", Preferences{})
	titleScore, _ := scorer.Score(byTitle, "ABC-123 renovation", Preferences{})

	if refScore <= titleScore {
		t.Fatalf("reference hit score %.1f should dominate title score %.1f", refScore, titleScore)
	}
	if !hasReason(refReasons, "Reference number match") {
		t.Errorf("expected reference reason, got %v", refReasons)
	}
}

func TestScoreClosingSoonBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	scorer := fixedScorer(now)

	tests := []struct {
		name      string
		closing   string
		wantBonus bool
	}{
		{"exactly_seven_days", now.Add(7 * 24 * time.Hour).Format(time.RFC3339), true},
		{"eight_days", now.Add(8 * 24 * time.Hour).Format(time.RFC3339), false},
		{"already_closed", now.Add(-24 * time.Hour).Format(time.RFC3339), false},
		{"unparseable", "next Tuesday-ish", false},
		{"absent", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := tender.Tender{Title: "Supply of stationery", Closing: tt.closing}
			base := tender.Tender{Title: "Supply of stationery"}

			got, reasons := scorer.Score(record, "stationery", Preferences{})
			want, _ := scorer.Score(base, "stationery", Preferences{})
			if tt.wantBonus {
				want += scorer.Weights.ClosingSoon
			}

			if got != want {
				t.Errorf("score = %.2f, want %.2f", got, want)
			}
			if tt.wantBonus != hasReason(reasons, "Closing soon") {
				t.Errorf("closing-soon reason presence = %v, want %v", !tt.wantBonus, tt.wantBonus)
			}
		})
	}
}

func TestScorePreferredCategory(t *testing.T) {
	scorer := fixedScorer(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	record := tender.Tender{Title: "Managed IT support", Category: "IT Services"}
	prefs := Preferences{Categories: []string{"IT Services"}}

	with, reasons := scorer.Score(record, "IT services", prefs)
	without, _ := scorer.Score(record, "IT services", Preferences{})

	if with != without+scorer.Weights.PreferredCategory {
		t.Errorf("preference bonus not applied: with=%.1f without=%.1f", with, without)
	}
	if !hasReason(reasons, "Preferred category") {
		t.Errorf("expected preferred-category reason, got %v", reasons)
	}
}

func TestScorePreferredSiteUsesSourceURLOnly(t *testing.T) {
	scorer := fixedScorer(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	record := tender.Tender{
		Title:     "Borehole drilling",
		SourceURL: "https://tenders.example.gov/listing/991",
	}
	prefs := Preferences{Sites: []string{"tenders.example.gov"}}

	with, _ := scorer.Score(record, "borehole", prefs)
	without, _ := scorer.Score(record, "borehole", Preferences{})

	if with != without+scorer.Weights.PreferredSite {
		t.Errorf("site bonus not applied: with=%.1f without=%.1f", with, without)
	}
}

func TestScoreOpenStatus(t *testing.T) {
	scorer := fixedScorer(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	open := tender.Tender{Title: "Security services", Status: "Open"}
	closed := tender.Tender{Title: "Security services", Status: "Closed"}

	openScore, _ := scorer.Score(open, "security", Preferences{})
	closedScore, _ := scorer.Score(closed, "security", Preferences{})

	if openScore != closedScore+scorer.Weights.OpenStatus {
		t.Errorf("open bonus missing: open=%.1f closed=%.1f", openScore, closedScore)
	}
}

func TestScoreNoTiersIsZero(t *testing.T) {
	scorer := fixedScorer(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	record := tender.Tender{}

	score, reasons := scorer.Score(record, "anything at all", Preferences{})
	if score != 0 {
		t.Errorf("empty record scored %.2f, want 0", score)
	}
	if len(reasons) != 0 {
		t.Errorf("empty record produced reasons %v", reasons)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "anything", 0},
		{"same", "same", 1},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %.3f, want %.3f", tt.a, tt.b, got, tt.want)
		}
	}

	closer := similarity("it services", "it service desk")
	further := similarity("it services", "road maintenance")
	if closer <= further {
		t.Errorf("similarity ordering wrong: %.3f <= %.3f", closer, further)
	}
}

func hasReason(reasons []string, want string) bool {
	for _, reason := range reasons {
		if reason == want {
			return true
		}
	}
	return false
}
