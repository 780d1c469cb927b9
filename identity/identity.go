// Package identity models the externally authenticated principal.
//
// Identities are issued and verified by the external identity provider;
// this module only reads them. Profile-level overrides (photo, display
// name) live on the profile document, not here.
package identity

// Identity is the authenticated principal: an opaque uid plus the basic
// claims the provider shares.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}
