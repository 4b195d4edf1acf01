package models

import "time"

// Account holds a cached balance. Watermark marks the date through which
// BalanceCents is known to be accurate.
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ColorHex     string     `json:"color_hex"`
	Description  *string    `json:"description,omitempty"`
	BalanceCents int64      `json:"balance_cents"`
	Watermark    *time.Time `json:"watermark,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AccountPatch is a partial update of an account. Nil fields are left alone.
// IfVersion, when set, makes the update conditional on the stored version.
// AdjustmentID, when set, is recorded with the write; a second patch with
// the same id is refused.
type AccountPatch struct {
	BalanceCents *int64
	Watermark    *time.Time
	IfVersion    *int64
	AdjustmentID string
}

func (p AccountPatch) Empty() bool { return p.BalanceCents == nil && p.Watermark == nil }
