// Package token issues short-lived credentials that let a subject join a room's channel.
package token

import (
	"fmt"
	"strings"
	"time"
)

// Validity is the fixed lifetime of every issued token.
const Validity = time.Hour

// Role is the privilege level a token grants inside a channel.
type Role string

const (
	// RoleHost may publish media.
	RoleHost Role = "host"
	// RoleAudience may only subscribe.
	RoleAudience Role = "audience"
)

// ParseRole maps a client-supplied role to a Role. Empty means host.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleHost:
		return RoleHost, nil
	case RoleAudience:
		return RoleAudience, nil
	}
	return "", fmt.Errorf("role must be %s or %s", RoleHost, RoleAudience)
}

// CanPublish reports whether the role may publish media.
func (r Role) CanPublish() bool { return r == RoleHost }

// Token is an ephemeral signed credential. It is returned to the caller and never stored.
type Token struct {
	Value     string    `json:"token"`
	AppID     string    `json:"app_id"`
	Channel   string    `json:"-"`
	SubjectID string    `json:"-"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs a fresh token for every call. Implementations must not cache.
type Issuer interface {
	Issue(channel, subjectID string, role Role, now time.Time) (Token, error)
}

func newToken(appID, value, channel, subjectID string, role Role, now time.Time) Token {
	return Token{
		Value:     value,
		AppID:     appID,
		Channel:   channel,
		SubjectID: subjectID,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(Validity),
	}
}
