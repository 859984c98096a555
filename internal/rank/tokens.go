package rank

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Identifier-shaped token: a short uppercase letter run followed by digits,
// optionally separated. The procurement reference heuristic.
var identifierPattern = regexp.MustCompile(`[A-Z]{2,6}[-/]?[0-9]+`)

// Alphanumeric-with-separator runs inside an uppercased query; candidates
// for reference-number containment checks.
var referenceTokenPattern = regexp.MustCompile(`[A-Z0-9][A-Z0-9/-]*`)

var identifierPhrases = []string{
	"reference",
	"ref no",
	"ref number",
	"tender number",
	"tender no",
	"rfq number",
	"bid number",
}

func looksLikeIdentifierQuery(query string) bool {
	if identifierPattern.MatchString(query) {
		return true
	}
	lower := strings.ToLower(query)
	for _, phrase := range identifierPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func referenceTokens(query string) []string {
	raw := referenceTokenPattern.FindAllString(strings.ToUpper(query), -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) > 3 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// queryWords tokenizes with prose (tagging, segmentation and entity
// extraction disabled) and keeps lowercased word tokens longer than three
// characters. Tokenizer failure degrades to whitespace splitting.
func queryWords(query string) []string {
	var texts []string

	doc, err := prose.NewDocument(query,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err == nil {
		for _, token := range doc.Tokens() {
			texts = append(texts, token.Text)
		}
	} else {
		texts = strings.FieldsFunc(query, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}

	words := make([]string, 0, len(texts))
	for _, text := range texts {
		word := strings.ToLower(strings.TrimSpace(text))
		if len(word) > 3 {
			words = append(words, word)
		}
	}
	return words
}

// similarity is a longest-common-subsequence ratio in [0,1]:
// 2*LCS / (len(a)+len(b)) over runes, case-folded by the caller.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
