package token

import (
	"fmt"
	"strconv"
)

// Provider names accepted by New.
const (
	ProviderZego = "zego"
	ProviderJWT  = "jwt"
)

// New builds the issuer for provider using the given app credentials.
func New(provider, appID, secret string) (Issuer, error) {
	switch provider {
	case ProviderZego:
		id, err := strconv.ParseUint(appID, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("zego: app_id must be a 32-bit unsigned integer: %w", err)
		}
		return NewZegoIssuer(uint32(id), secret)
	case ProviderJWT:
		return NewJWTIssuer(appID, secret)
	}
	return nil, fmt.Errorf("unknown token provider %q", provider)
}
