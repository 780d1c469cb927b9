// Package profile models the account records this module owns about a
// user: the profile document, organization memberships, and the global
// stats document.
package profile

import (
	"time"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/identity"
)

// Tier is the subscription tier. Transitions between tiers are driven by an
// external billing process; this module only reads the current value.
type Tier string

const (
	TierFree      Tier = "FREE"
	TierUltra     Tier = "ULTRA"
	TierUltraPlus Tier = "ULTRA_PLUS"
)

// ParseTier maps a stored tier string to a Tier, defaulting unknown or
// empty values to FREE.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierUltra:
		return TierUltra
	case TierUltraPlus:
		return TierUltraPlus
	default:
		return TierFree
	}
}

// rank orders tiers for AtLeast comparisons.
func (t Tier) rank() int {
	switch t {
	case TierUltra:
		return 1
	case TierUltraPlus:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether t is the same tier as other or a higher one.
func (t Tier) AtLeast(other Tier) bool { return t.rank() >= other.rank() }

// DefaultRoles is the role set assigned when a profile document carries none.
var DefaultRoles = []string{"member"}

// Profile is this module's owned record about a uid.
type Profile struct {
	UID          string    `json:"uid"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	Tier         Tier      `json:"tier"`
	Username     string    `json:"username,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Roles        []string  `json:"roles"`
	Devices      int       `json:"devices"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Default derives the profile a brand-new user starts with from their
// identity claims.
func Default(ident identity.Identity, now time.Time) Profile {
	name := ident.DisplayName
	if name == "" {
		name = "Guest"
	}
	return Profile{
		UID:         ident.UID,
		DisplayName: name,
		Email:       ident.Email,
		Tier:        TierFree,
		Roles:       append([]string(nil), DefaultRoles...),
		Devices:     1,
		PhotoURL:    ident.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FromDoc normalizes a stored profile document, filling gaps from the
// identity claims the way a missing document would.
func FromDoc(doc docstore.Document, ident identity.Identity) Profile {
	p := Default(ident, doc.Time("createdAt"))
	if v := doc.String("displayName"); v != "" {
		p.DisplayName = v
	}
	if v := doc.String("email"); v != "" {
		p.Email = v
	}
	p.Tier = ParseTier(doc.String("tier"))
	p.Username = doc.String("username")
	p.Organization = doc.String("organization")
	if roles := doc.Strings("roles"); len(roles) > 0 {
		p.Roles = roles
	}
	if d := doc.Int64("devices"); d > 0 {
		p.Devices = int(d)
	}
	if v := doc.String("photoURL"); v != "" {
		p.PhotoURL = v
	}
	p.IsAdmin = doc.Bool("isAdmin")
	p.UpdatedAt = doc.Time("updatedAt")
	return p
}

// Fields maps the profile onto its stored document shape.
func (p Profile) Fields() map[string]any {
	return map[string]any{
		"displayName":  p.DisplayName,
		"email":        p.Email,
		"tier":         string(p.Tier),
		"username":     p.Username,
		"organization": p.Organization,
		"roles":        p.Roles,
		"devices":      p.Devices,
		"photoURL":     p.PhotoURL,
		"isAdmin":      p.IsAdmin,
		"createdAt":    p.CreatedAt,
		"updatedAt":    p.UpdatedAt,
	}
}

// Org is an organization the user belongs to. Members holds the member
// uids; the array is what membership queries filter on.
type Org struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tier    Tier     `json:"tier"`
	Members []string `json:"members,omitempty"`
}

// MemberCount reports the number of members.
func (o Org) MemberCount() int { return len(o.Members) }

// OrgFromDoc normalizes a stored organization document.
func OrgFromDoc(doc docstore.Document) Org {
	name := doc.String("name")
	if name == "" {
		name = "Workspace"
	}
	return Org{
		ID:      doc.ID,
		Name:    name,
		Tier:    ParseTier(doc.String("tier")),
		Members: doc.Strings("members"),
	}
}

// Stats is the single global aggregate document.
type Stats struct {
	ActiveUsers int64  `json:"active_users"`
	Orgs        int64  `json:"orgs"`
	APIHealth   string `json:"api_health"`
}

// DefaultStats is what the snapshot carries when the stats read degrades.
func DefaultStats() Stats {
	return Stats{APIHealth: "Unknown"}
}

// StatsFromDoc normalizes the stored stats document.
func StatsFromDoc(doc docstore.Document) Stats {
	s := DefaultStats()
	s.ActiveUsers = doc.Int64("activeUsers")
	s.Orgs = doc.Int64("orgs")
	if v := doc.String("apiHealth"); v != "" {
		s.APIHealth = v
	}
	return s
}
