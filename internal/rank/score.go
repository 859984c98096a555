// Package rank scores tender records against a free-text query and selects
// the bounded set worth injecting into the model prompt.
package rank

import (
	"strings"
	"time"

	"github.com/b-max/backend/internal/tender"
)

// Preferences carries the slice of a user profile that influences ranking.
type Preferences struct {
	Categories []string
	Sites      []string
}

// Weights for each scoring tier. Exact reference hits must stay dominant so
// identifier lookups deterministically outrank fuzzy matches; fuzzy tiers
// stay weakest. The values differ slightly between deployments, so they are
// centralized here rather than inlined.
type Weights struct {
	ReferenceHit      float64
	TitleSubstring    float64
	TitleWord         float64
	TitleSimilarity   float64
	CategorySubstring float64
	PreferredCategory float64
	AgencySubstring   float64
	AgencyWord        float64
	PreferredSite     float64
	ClosingSoon       float64
	OpenStatus        float64
}

func DefaultWeights() Weights {
	return Weights{
		ReferenceHit:      1000,
		TitleSubstring:    200,
		TitleWord:         50,
		TitleSimilarity:   100,
		CategorySubstring: 150,
		PreferredCategory: 120,
		AgencySubstring:   80,
		AgencyWord:        40,
		PreferredSite:     60,
		ClosingSoon:       30,
		OpenStatus:        20,
	}
}

const closingSoonWindow = 7 * 24 * time.Hour

// Scorer is a pure function of its inputs apart from Now, which exists so
// the closing-soon tier is testable.
type Scorer struct {
	Weights Weights
	Now     func() time.Time
}

func NewScorer() Scorer {
	return Scorer{Weights: DefaultWeights(), Now: time.Now}
}

// Score returns the record's relevance to the query plus human-readable
// match reasons. Zero means no tier fired; excluding those records is the
// caller's job.
func (s Scorer) Score(t tender.Tender, query string, prefs Preferences) (float64, []string) {
	var score float64
	var reasons []string

	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	words := queryWords(query)

	// Reference tier.
	upperRef := strings.ToUpper(t.Reference)
	if upperRef != "" {
		for _, token := range referenceTokens(query) {
			if strings.Contains(upperRef, token) {
				score += s.Weights.ReferenceHit
				reasons = append(reasons, "Reference number match")
				break
			}
		}
	}

	// Title tier.
	lowerTitle := strings.ToLower(t.Title)
	if lowerTitle != "" {
		titleHit := false
		if strings.Contains(lowerTitle, lowerQuery) && lowerQuery != "" {
			score += s.Weights.TitleSubstring
			titleHit = true
		}
		for _, word := range words {
			if strings.Contains(lowerTitle, word) {
				score += s.Weights.TitleWord
				titleHit = true
			}
		}
		score += similarity(lowerQuery, lowerTitle) * s.Weights.TitleSimilarity
		if titleHit {
			reasons = append(reasons, "Title match")
		}
	}

	// Category tier.
	lowerCategory := strings.ToLower(t.Category)
	if lowerCategory != "" {
		if strings.Contains(lowerQuery, lowerCategory) || strings.Contains(lowerCategory, lowerQuery) {
			score += s.Weights.CategorySubstring
			reasons = append(reasons, "Category match")
		}
		for _, preferred := range prefs.Categories {
			if strings.ToLower(preferred) == lowerCategory {
				score += s.Weights.PreferredCategory
				reasons = append(reasons, "Preferred category")
				break
			}
		}
	}

	// Agency tier.
	lowerAgency := strings.ToLower(t.Agency)
	if lowerAgency != "" {
		agencyHit := false
		if strings.Contains(lowerQuery, lowerAgency) || strings.Contains(lowerAgency, lowerQuery) {
			score += s.Weights.AgencySubstring
			agencyHit = true
		}
		for _, word := range words {
			if strings.Contains(lowerAgency, word) {
				score += s.Weights.AgencyWord
				agencyHit = true
			}
		}
		if agencyHit {
			reasons = append(reasons, "Agency match")
		}
	}

	// Preference-site tier. Source URLs rank records but are never shown as
	// the document link.
	lowerSource := strings.ToLower(t.SourceURL)
	if lowerSource != "" {
		for _, site := range prefs.Sites {
			if site != "" && strings.Contains(lowerSource, strings.ToLower(site)) {
				score += s.Weights.PreferredSite
				reasons = append(reasons, "Preferred source site")
				break
			}
		}
	}

	// Freshness tier. Malformed dates contribute nothing.
	if closing, ok := t.ClosingTime(); ok {
		until := closing.Sub(s.now())
		if until >= 0 && until <= closingSoonWindow {
			score += s.Weights.ClosingSoon
			reasons = append(reasons, "Closing soon")
		}
	}

	// Status tier.
	if t.IsOpen() {
		score += s.Weights.OpenStatus
	}

	return score, reasons
}

func (s Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
