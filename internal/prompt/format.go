// Package prompt renders tender data into the text blocks fed to the
// completion API: a database-wide digest for numeric grounding plus a
// per-record template for the ranked selection.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/b-max/backend/internal/rank"
	"github.com/b-max/backend/internal/tender"
)

const (
	maxListedAgencies = 15
	topCategoryCount  = 5

	noLinkText = "No document link available"
)

// Summarize produces the fixed-structure digest of the current snapshot.
// The output is deterministic for a given snapshot and preference list, so
// repeated instruction regeneration is idempotent.
func Summarize(records []tender.Tender, preferredCategories []string) string {
	var b strings.Builder

	b.WriteString("TENDER DATABASE SUMMARY\n")
	fmt.Fprintf(&b, "Total tenders: %d\n", len(records))

	if len(records) == 0 {
		b.WriteString("The database currently holds no tenders.\n")
		return b.String()
	}

	categories := tender.Categories(records)
	agencies := tender.Agencies(records)
	statuses := distinctStatuses(records)

	fmt.Fprintf(&b, "Distinct categories: %d | Agencies: %d | Statuses: %s\n",
		len(categories), len(agencies), strings.Join(statuses, ", "))

	withLinks := 0
	for _, record := range records {
		if strings.TrimSpace(record.DocumentURL) != "" {
			withLinks++
		}
	}
	fmt.Fprintf(&b, "Tenders with document links: %d (%.0f%%)\n",
		withLinks, float64(withLinks)/float64(len(records))*100)

	if len(agencies) > maxListedAgencies {
		fmt.Fprintf(&b, "Agencies: %s (and %d more)\n",
			strings.Join(agencies[:maxListedAgencies], ", "), len(agencies)-maxListedAgencies)
	} else {
		fmt.Fprintf(&b, "Agencies: %s\n", strings.Join(agencies, ", "))
	}

	fmt.Fprintf(&b, "Top categories: %s\n", strings.Join(topCategories(records), ", "))

	if len(preferredCategories) > 0 {
		fmt.Fprintf(&b, "User's preferred categories: %s\n", strings.Join(preferredCategories, ", "))
	}

	return b.String()
}

// Render writes the ranked records using a fixed template. The document-link
// line comes exclusively from the record's primary document URL: when that is
// absent the line says so explicitly, and the secondary source URL is only
// ever shown on its own clearly-labelled line.
func Render(matches []rank.Match) string {
	if len(matches) == 0 {
		return "No tenders matched the current question.\n"
	}

	var b strings.Builder
	b.WriteString("MATCHING TENDERS\n")

	for i, match := range matches {
		t := match.Tender
		fmt.Fprintf(&b, "%d. %s\n", i+1, orUnknown(t.Title, "Untitled tender"))
		fmt.Fprintf(&b, "   Reference: %s\n", orUnknown(t.Reference, "N/A"))
		fmt.Fprintf(&b, "   Category: %s\n", orUnknown(t.Category, "Uncategorized"))
		fmt.Fprintf(&b, "   Agency: %s\n", orUnknown(t.Agency, "Unknown"))
		fmt.Fprintf(&b, "   Closing date: %s\n", orUnknown(t.Closing, "Not stated"))
		fmt.Fprintf(&b, "   Status: %s\n", orUnknown(t.Status, "unknown"))

		if link := strings.TrimSpace(t.DocumentURL); link != "" {
			fmt.Fprintf(&b, "   Document link: %s\n", link)
		} else {
			fmt.Fprintf(&b, "   Document link: %s\n", noLinkText)
		}
		if source := strings.TrimSpace(t.SourceURL); source != "" {
			fmt.Fprintf(&b, "   Source page: %s\n", source)
		}

		if len(match.Reasons) > 0 {
			fmt.Fprintf(&b, "   Why: %s\n", strings.Join(match.Reasons, "; "))
		}
	}

	return b.String()
}

// Instruction assembles the pinned system message from the behavioral rules
// and the freshest database context.
func Instruction(firstName, summary, rendered string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are B-Max, a procurement assistant helping %s find and analyze tenders.\n", firstName)
	b.WriteString("Rules:\n")
	b.WriteString("- Answer only from the tender data below.\n")
	b.WriteString("- When recommending a tender, always include its reference number and closing date.\n")
	b.WriteString("- Only ever give out the 'Document link' value as a download link. ")
	b.WriteString("Never present a 'Source page' URL as a document link.\n")
	b.WriteString("- If no tender fits, say so and suggest the closest categories.\n\n")
	b.WriteString(summary)
	b.WriteString("\n")
	b.WriteString(rendered)

	return b.String()
}

func topCategories(records []tender.Tender) []string {
	freq := make(map[string]int)
	for _, record := range records {
		if category := strings.TrimSpace(record.Category); category != "" {
			freq[category]++
		}
	}

	categories := make([]string, 0, len(freq))
	for category := range freq {
		categories = append(categories, category)
	}
	// Alphabetical tie-break keeps the digest stable across calls.
	sort.Slice(categories, func(i, j int) bool {
		if freq[categories[i]] != freq[categories[j]] {
			return freq[categories[i]] > freq[categories[j]]
		}
		return categories[i] < categories[j]
	})

	if len(categories) > topCategoryCount {
		categories = categories[:topCategoryCount]
	}

	out := make([]string, len(categories))
	for i, category := range categories {
		out[i] = fmt.Sprintf("%s (%d)", category, freq[category])
	}
	return out
}

func distinctStatuses(records []tender.Tender) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		status := strings.ToLower(strings.TrimSpace(record.Status))
		if status == "" {
			status = "unknown"
		}
		seen[status] = struct{}{}
	}
	statuses := make([]string, 0, len(seen))
	for status := range seen {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return statuses
}

func orUnknown(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
