package tender

import (
	"sort"
	"strings"
	"time"
)

// Tender is one procurement opportunity as read from the tenders table.
// Records are read-only snapshots; nothing in the service mutates them.
type Tender struct {
	ID        string
	Title     string
	Category  string
	Agency    string
	Status    string
	Closing   string
	Reference string

	// DocumentURL is the only field ever surfaced to a user as a document
	// link. SourceURL identifies the site the record was collected from and
	// stays internal (preference matching, "source page" lines).
	DocumentURL string
	SourceURL   string

	ContactName  string
	ContactEmail string
	ContactPhone string
}

// FromItem maps a normalized table item onto a Tender, tolerating the
// attribute-name drift between ingest pipeline versions.
func FromItem(item map[string]any) Tender {
	return Tender{
		ID:           str(item, "id", "tenderId", "tender_id"),
		Title:        str(item, "title", "Title"),
		Category:     str(item, "Category", "category"),
		Agency:       str(item, "sourceAgency", "agency", "issuingAgency"),
		Status:       str(item, "status", "Status"),
		Closing:      str(item, "closingDate", "closing_date"),
		Reference:    str(item, "referenceNumber", "reference_number", "reference"),
		DocumentURL:  str(item, "link", "documentUrl", "document_url"),
		SourceURL:    str(item, "sourceUrl", "source_url", "sourceURL"),
		ContactName:  str(item, "contactName", "contact_name"),
		ContactEmail: str(item, "contactEmail", "contact_email"),
		ContactPhone: str(item, "contactPhone", "contact_phone"),
	}
}

func FromItems(items []map[string]any) []Tender {
	tenders := make([]Tender, 0, len(items))
	for _, item := range items {
		tenders = append(tenders, FromItem(item))
	}
	return tenders
}

// ClosingTime parses the closing date. The second return is false for
// absent or malformed dates; callers skip the record's urgency handling
// rather than erroring.
func (t Tender) ClosingTime() (time.Time, bool) {
	raw := strings.TrimSpace(t.Closing)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (t Tender) IsOpen() bool {
	status := strings.ToLower(t.Status)
	return strings.Contains(status, "open") || strings.Contains(status, "active")
}

// Categories returns the distinct categories across records, sorted.
func Categories(records []Tender) []string {
	return distinct(records, func(t Tender) string { return t.Category })
}

// Agencies returns the distinct issuing agencies across records, sorted.
func Agencies(records []Tender) []string {
	return distinct(records, func(t Tender) string { return t.Agency })
}

func distinct(records []Tender, field func(Tender) string) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		if value := strings.TrimSpace(field(record)); value != "" {
			seen[value] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for value := range seen {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

func str(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
