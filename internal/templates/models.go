package templates

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the template a document payload was written against.
type Kind string

const (
	KindVacation Kind = "VACATION"
	KindTrip     Kind = "TRIP"
	KindReport   Kind = "REPORT"
	KindExpense  Kind = "EXPENSE"
)

// Valid reports whether the kind is one of the supported templates.
func (k Kind) Valid() bool {
	switch k {
	case KindVacation, KindTrip, KindReport, KindExpense:
		return true
	}
	return false
}

// Vacation is a leave request payload.
type Vacation struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// Trip is a business-trip request payload.
type Trip struct {
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Purpose     string `json:"purpose"`
}

// Report is a work-report payload.
type Report struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExpenseItem is a single line of an expense claim.
type ExpenseItem struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Expense is an expense-claim payload.
type Expense struct {
	Title string        `json:"title"`
	Items []ExpenseItem `json:"items"`
}

// Validate checks that a raw payload decodes as the named template kind.
// The workflow engine treats payloads as opaque; this runs only at the HTTP
// edge before submission.
func Validate(kind Kind, payload json.RawMessage) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown template kind %q", kind)
	}
	if len(payload) == 0 {
		return fmt.Errorf("empty payload")
	}

	var target any
	switch kind {
	case KindVacation:
		target = &Vacation{}
	case KindTrip:
		target = &Trip{}
	case KindReport:
		target = &Report{}
	case KindExpense:
		target = &Expense{}
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("payload does not match template %s: %w", kind, err)
	}

	if titled, ok := target.(interface{ title() string }); ok && titled.title() == "" {
		return fmt.Errorf("payload for template %s is missing a title", kind)
	}
	return nil
}

func (v *Vacation) title() string { return v.Title }
func (t *Trip) title() string     { return t.Title }
func (r *Report) title() string   { return r.Title }
func (e *Expense) title() string  { return e.Title }
