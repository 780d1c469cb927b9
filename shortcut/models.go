// Package shortcut models per-user QuickLaunch shortcuts.
package shortcut

import (
	"time"

	"github.com/blacklink/accounts/docstore"
	"github.com/blacklink/accounts/id"
)

// Defaults applied when a shortcut is created without these fields.
const (
	DefaultIcon  = "⚡"
	DefaultGroup = "General"
)

// Shortcut is a user-owned launcher entry. No uniqueness invariant exists
// beyond the generated id.
type Shortcut struct {
	ID        id.ShortcutID `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	URL       string        `json:"url"`
	Icon      string        `json:"icon,omitempty"`
	Favorite  bool          `json:"favorite"`
	Group     string        `json:"group"`
	Color     string        `json:"color,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitzero"`
	UpdatedAt time.Time     `json:"updated_at,omitzero"`
}

// ApplyDefaults fills the icon and group defaults for new shortcuts.
func (s *Shortcut) ApplyDefaults() {
	if s.Icon == "" {
		s.Icon = DefaultIcon
	}
	if s.Group == "" {
		s.Group = DefaultGroup
	}
}

// FromDoc normalizes a stored shortcut document.
func FromDoc(doc docstore.Document) Shortcut {
	// Documents written by older clients may carry non-TypeID ids; those
	// surface with a nil id and stay read-only.
	sid, err := id.ParseShortcutID(doc.ID)
	if err != nil {
		sid = id.Nil
	}
	s := Shortcut{
		ID:        sid,
		UserID:    doc.String("userId"),
		Name:      doc.String("name"),
		URL:       doc.String("url"),
		Icon:      doc.String("icon"),
		Favorite:  doc.Bool("favorite"),
		Group:     doc.String("group"),
		Color:     doc.String("color"),
		CreatedAt: doc.Time("createdAt"),
		UpdatedAt: doc.Time("updatedAt"),
	}
	if s.Name == "" {
		s.Name = "App"
	}
	if s.URL == "" {
		s.URL = "#"
	}
	s.ApplyDefaults()
	return s
}

// Fields maps the shortcut onto its stored document shape.
func (s Shortcut) Fields() map[string]any {
	return map[string]any{
		"userId":    s.UserID,
		"name":      s.Name,
		"url":       s.URL,
		"icon":      s.Icon,
		"favorite":  s.Favorite,
		"group":     s.Group,
		"color":     s.Color,
		"createdAt": s.CreatedAt,
		"updatedAt": s.UpdatedAt,
	}
}
