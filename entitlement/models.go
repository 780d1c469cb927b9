// Package entitlement models the subscription record and the metered
// token ledger, and the combined snapshot callers consume.
package entitlement

import (
	"slices"
	"time"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/profile"
)

// BaselineFeatures is the feature list every FREE record starts with.
var BaselineFeatures = []string{"Basic Blacklink Apps", "Standard Support"}

// AllocationFor maps a tier to its monthly token allocation in credits.
// FREE tiers carry no allocation.
func AllocationFor(tier profile.Tier) int64 {
	switch tier {
	case profile.TierUltra:
		return 10
	case profile.TierUltraPlus:
		return 25
	default:
		return 0
	}
}

// Record is the per-user subscription record, independent of the profile.
type Record struct {
	UserID    string       `json:"user_id"`
	Email     string       `json:"email,omitempty"`
	Tier      profile.Tier `json:"tier"`
	Status    string       `json:"status"`
	Price     int64        `json:"price"`
	Features  []string     `json:"features"`
	CreatedAt time.Time    `json:"created_at,omitzero"`
	UpdatedAt time.Time    `json:"updated_at,omitzero"`
}

// DefaultRecord is the FREE record synthesized when none is stored.
func DefaultRecord(uid, email string, now time.Time) Record {
	return Record{
		UserID:    uid,
		Email:     email,
		Tier:      profile.TierFree,
		Status:    "active",
		Price:     0,
		Features:  append([]string(nil), BaselineFeatures...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordFromDoc normalizes a stored subscription document.
func RecordFromDoc(doc docstore.Document) Record {
	r := Record{
		UserID:    doc.String("userId"),
		Email:     doc.String("email"),
		Tier:      profile.ParseTier(doc.String("tier")),
		Status:    doc.String("status"),
		Price:     doc.Int64("price"),
		Features:  doc.Strings("features"),
		CreatedAt: doc.Time("createdAt"),
		UpdatedAt: doc.Time("updatedAt"),
	}
	if r.Status == "" {
		r.Status = "active"
	}
	return r
}

// Fields maps the record onto its stored document shape.
func (r Record) Fields() map[string]any {
	return map[string]any{
		"userId":    r.UserID,
		"email":     r.Email,
		"tier":      string(r.Tier),
		"status":    r.Status,
		"price":     r.Price,
		"features":  r.Features,
		"createdAt": r.CreatedAt,
		"updatedAt": r.UpdatedAt,
	}
}

// Ledger is the per-user metered credit balance. remaining + used ==
// monthlyAllocation is the intended steady state; only debits maintain it
// atomically, allocation changes do not.
type Ledger struct {
	UserID            string       `json:"user_id,omitempty"`
	Tier              profile.Tier `json:"tier,omitempty"`
	MonthlyAllocation int64        `json:"monthly_allocation"`
	Remaining         int64        `json:"remaining"`
	Used              int64        `json:"used"`
	LastReset         time.Time    `json:"last_reset,omitzero"`
	AllocatedAt       time.Time    `json:"allocated_at,omitzero"`
	LastUsedAt        time.Time    `json:"last_used_at,omitzero"`
}

// ZeroLedger is what FREE users resolve to when no ledger document exists.
// It is never persisted.
func ZeroLedger() Ledger { return Ledger{} }

// NewLedger allocates a fresh ledger for a tier at or above ULTRA.
func NewLedger(uid string, tier profile.Tier, now time.Time) Ledger {
	alloc := AllocationFor(tier)
	return Ledger{
		UserID:            uid,
		Tier:              tier,
		MonthlyAllocation: alloc,
		Remaining:         alloc,
		Used:              0,
		LastReset:         now,
		AllocatedAt:       now,
	}
}

// LedgerFromDoc normalizes a stored token ledger document.
func LedgerFromDoc(doc docstore.Document) Ledger {
	return Ledger{
		UserID:            doc.String("userId"),
		Tier:              profile.ParseTier(doc.String("tier")),
		MonthlyAllocation: doc.Int64("monthlyAllocation"),
		Remaining:         doc.Int64("remaining"),
		Used:              doc.Int64("used"),
		LastReset:         doc.Time("lastReset"),
		AllocatedAt:       doc.Time("allocatedAt"),
		LastUsedAt:        doc.Time("lastUsedAt"),
	}
}

// Fields maps the ledger onto its stored document shape.
func (l Ledger) Fields() map[string]any {
	return map[string]any{
		"userId":            l.UserID,
		"tier":              string(l.Tier),
		"monthlyAllocation": l.MonthlyAllocation,
		"remaining":         l.Remaining,
		"used":              l.Used,
		"lastReset":         l.LastReset,
		"allocatedAt":       l.AllocatedAt,
		"lastUsedAt":        l.LastUsedAt,
	}
}

// Balance is the post-debit view returned by token debits.
type Balance struct {
	Remaining int64 `json:"remaining"`
	Used      int64 `json:"used"`
}

// Snapshot combines the subscription record and token ledger for one user.
type Snapshot struct {
	Record Record `json:"record"`
	Tokens Ledger `json:"tokens"`
}

// DefaultSnapshot is the hard-coded FREE/zero-ledger snapshot returned when
// a cache-miss resolution fails. It is never cached.
func DefaultSnapshot(uid, email string, now time.Time) Snapshot {
	return Snapshot{
		Record: DefaultRecord(uid, email, now),
		Tokens: ZeroLedger(),
	}
}

// Tier returns the snapshot's subscription tier.
func (s Snapshot) Tier() profile.Tier { return s.Record.Tier }

// HasUltra reports whether the tier is ULTRA or above.
func (s Snapshot) HasUltra() bool { return s.Record.Tier.AtLeast(profile.TierUltra) }

// HasUltraPlus reports whether the tier is ULTRA_PLUS.
func (s Snapshot) HasUltraPlus() bool { return s.Record.Tier == profile.TierUltraPlus }

// Features returns the capability list on the record.
func (s Snapshot) Features() []string { return s.Record.Features }

// HasFeature reports whether the record carries the named capability.
func (s Snapshot) HasFeature(feature string) bool {
	return slices.Contains(s.Record.Features, feature)
}
