package rank

import (
	"sort"
	"strings"

	"github.com/b-max/backend/internal/tender"
)

const (
	defaultLimit = 5

	// Minimum score for the top-1 fallback when an identifier-looking query
	// matched nothing exactly.
	specificScoreFloor = 50

	// Either side of a title-containment check must be longer than this to
	// count, guarding against short accidental substrings.
	titleExactMinLen = 10
)

// Match pairs a selected record with its score and the reasons it matched.
type Match struct {
	Tender  tender.Tender
	Score   float64
	Reasons []string
}

type Engine struct {
	Scorer Scorer
	Limit  int
}

func NewEngine(limit int) *Engine {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Engine{Scorer: NewScorer(), Limit: limit}
}

// Select ranks records against the query. Identifier-shaped queries go
// through the exact-match passes first; everything else is scored, filtered
// to score > 0, stable-sorted descending (scan order breaks ties) and
// truncated to the limit. An empty record set yields an empty result.
func (e *Engine) Select(query string, records []tender.Tender, prefs Preferences) []Match {
	if len(records) == 0 {
		return nil
	}

	if looksLikeIdentifierQuery(query) {
		return e.selectSpecific(query, records, prefs)
	}

	return e.selectGeneral(query, records, prefs)
}

// selectSpecific: exact reference-number containment first, then guarded
// exact title containment, each returning the first hit in scan order. Only
// when both exact passes miss does scoring run, with a high floor and a
// single result.
func (e *Engine) selectSpecific(query string, records []tender.Tender, prefs Preferences) []Match {
	for _, token := range referenceTokens(query) {
		for _, record := range records {
			if record.Reference == "" {
				continue
			}
			if strings.Contains(strings.ToUpper(record.Reference), token) {
				return []Match{{
					Tender:  record,
					Score:   e.Scorer.Weights.ReferenceHit,
					Reasons: []string{"Reference number match"},
				}}
			}
		}
	}

	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	for _, record := range records {
		lowerTitle := strings.ToLower(record.Title)
		if lowerTitle == "" {
			continue
		}
		contained := strings.Contains(lowerTitle, lowerQuery) || strings.Contains(lowerQuery, lowerTitle)
		if contained && (len(lowerQuery) > titleExactMinLen || len(lowerTitle) > titleExactMinLen) {
			return []Match{{
				Tender:  record,
				Score:   e.Scorer.Weights.TitleSubstring,
				Reasons: []string{"Title match"},
			}}
		}
	}

	var best *Match
	for _, record := range records {
		score, reasons := e.Scorer.Score(record, query, prefs)
		if best == nil || score > best.Score {
			best = &Match{Tender: record, Score: score, Reasons: reasons}
		}
	}
	if best != nil && best.Score > specificScoreFloor {
		return []Match{*best}
	}
	return nil
}

func (e *Engine) selectGeneral(query string, records []tender.Tender, prefs Preferences) []Match {
	matches := make([]Match, 0, len(records))
	for _, record := range records {
		score, reasons := e.Scorer.Score(record, query, prefs)
		if score > 0 {
			matches = append(matches, Match{Tender: record, Score: score, Reasons: reasons})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > e.Limit {
		matches = matches[:e.Limit]
	}
	return matches
}
