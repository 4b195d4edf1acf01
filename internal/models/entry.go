package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of entry dates.
const DateLayout = "2006-01-02"

type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"
)

// ParseEntryKind accepts credit/debit and the income/expense aliases.
func ParseEntryKind(s string) (EntryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "income":
		return EntryCredit, nil
	case "debit", "expense":
		return EntryDebit, nil
	}
	return "", fmt.Errorf("unknown entry kind %q", s)
}

func (k EntryKind) Valid() bool { return k == EntryCredit || k == EntryDebit }

// Entry is a single income or expense recorded against one account.
type Entry struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Kind        EntryKind `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	CategoryID  *string   `json:"category_id,omitempty"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Signed returns the amount with the sign of the entry kind applied.
func (e Entry) Signed() int64 { return SignedAmount(e.Kind, e.AmountCents) }

func SignedAmount(k EntryKind, amountCents int64) int64 {
	if k == EntryCredit {
		return amountCents
	}
	return -amountCents
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
