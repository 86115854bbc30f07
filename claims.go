package auth

import (
	"slices"
	"strings"
	"time"
)

// Claims is the identity snapshot embedded in a token. A new token is a new
// snapshot, claims are never mutated after issuance.
type Claims struct {
	SubjectID int64
	Username  string
	Roles     []string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole checks if the claims carry the given role
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, NormalizeRole(role))
}

// Principal is the authenticated identity bound to a single request
type Principal struct {
	SubjectID int64    `json:"id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
}

// NewPrincipal derives a principal from verified claims
func NewPrincipal(claims Claims) *Principal {
	return &Principal{
		SubjectID: claims.SubjectID,
		Username:  claims.Username,
		Roles:     append([]string(nil), claims.Roles...),
	}
}

// HasRole checks if the principal was granted role
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, NormalizeRole(role))
}

// HasAnyRole is true when the principal holds at least one of roles
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// HasAllRoles is true when the principal holds every one of roles
func (p *Principal) HasAllRoles(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, role := range roles {
		if !p.HasRole(role) {
			return false
		}
	}
	return true
}

const rolePrefix = "ROLE_"

// NormalizeRole upper cases a role label and strips the ROLE_ prefix,
// so "ROLE_admin" and "ADMIN" name the same role.
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, rolePrefix)
}

// NormalizeRoles normalizes, deduplicates and sorts role labels. Entries may
// hold comma separated lists ("ROLE_MEMBER,ROLE_ADMIN").
func NormalizeRoles(roles ...string) []string {
	out := make([]string, 0, len(roles))
	for _, entry := range roles {
		for _, role := range strings.Split(entry, ",") {
			role = NormalizeRole(role)
			if role == "" || slices.Contains(out, role) {
				continue
			}
			out = append(out, role)
		}
	}
	slices.Sort(out)
	return out
}

// ParseRoles splits a stored role string into normalized labels
func ParseRoles(raw string) []string {
	return NormalizeRoles(raw)
}

// FormatRoles is the inverse of ParseRoles, used by stores that keep roles
// in a single column
func FormatRoles(roles []string) string {
	return strings.Join(NormalizeRoles(roles...), ",")
}
