// Package username models handle reservations and the cohort suffix policy
// applied before a handle is reserved.
package username

import (
	"strings"
	"time"

	"github.com/blacklink/accounts/docstore"
)

// Reservation maps a handle (the document id) to its owning uid.
// At most one reservation exists per handle at any committed point.
type Reservation struct {
	Handle    string    `json:"handle"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ReservationFromDoc reads a stored reservation. The handle is the doc id.
func ReservationFromDoc(doc docstore.Document) Reservation {
	return Reservation{
		Handle:    doc.ID,
		UID:       doc.String("uid"),
		CreatedAt: doc.Time("createdAt"),
	}
}

// Fields maps the reservation onto its stored document shape.
func (r Reservation) Fields() map[string]any {
	return map[string]any{
		"uid":       r.UID,
		"createdAt": r.CreatedAt,
	}
}

// Normalize trims surrounding whitespace. Comparison stays case-sensitive;
// handles are stored exactly as entered.
func Normalize(handle string) string { return strings.TrimSpace(handle) }

// CohortPolicy appends a fixed suffix to handles chosen by members of a
// restricted cohort (managed/district accounts). This is a business rule
// applied before the uniqueness check, not a uniqueness mechanism.
type CohortPolicy struct {
	// Marker is matched case-insensitively against the profile organization
	// and roles. Empty disables the policy.
	Marker string `json:"marker"`

	// Suffix is appended as handle + "." + Suffix.
	Suffix string `json:"suffix"`
}

// DefaultCohortPolicy returns the managed-district policy.
func DefaultCohortPolicy() CohortPolicy {
	return CohortPolicy{Marker: "district", Suffix: "wsdr4"}
}

// Applies reports whether the cohort marker matches the organization or
// any role.
func (p CohortPolicy) Applies(organization string, roles []string) bool {
	if p.Marker == "" || p.Suffix == "" {
		return false
	}
	marker := strings.ToLower(p.Marker)
	if strings.Contains(strings.ToLower(organization), marker) {
		return true
	}
	for _, r := range roles {
		if strings.Contains(strings.ToLower(r), marker) {
			return true
		}
	}
	return false
}

// Apply returns the final handle for the given profile attributes. Handles
// already carrying the suffix are left alone.
func (p CohortPolicy) Apply(handle, organization string, roles []string) string {
	if !p.Applies(organization, roles) {
		return handle
	}
	suffixed := "." + p.Suffix
	if strings.HasSuffix(handle, suffixed) {
		return handle
	}
	return handle + suffixed
}
