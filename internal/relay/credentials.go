package relay

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// AuthScheme selects how the Authorization header is rendered.
type AuthScheme string

const (
	SchemeBearerToken     AuthScheme = "bearer"
	SchemeKeyToken        AuthScheme = "key"
	SchemeBasicBase64Pair AuthScheme = "basic"
)

// ParseAuthScheme maps a configuration value onto an AuthScheme.
func ParseAuthScheme(value string) (AuthScheme, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)
	switch normalized {
	case "bearer", "bearertoken":
		return SchemeBearerToken, nil
	case "key", "keytoken":
		return SchemeKeyToken, nil
	case "basic", "basicbase64pair", "pair":
		return SchemeBasicBase64Pair, nil
	default:
		return "", fmt.Errorf("relay: unsupported auth scheme %q", value)
	}
}

// Credentials are loaded once at startup and never mutated.
type Credentials struct {
	scheme AuthScheme
	value  string
}

// BearerToken renders "Bearer {token}".
func BearerToken(token string) Credentials {
	return Credentials{scheme: SchemeBearerToken, value: token}
}

// KeyToken renders "Key {token}".
func KeyToken(token string) Credentials {
	return Credentials{scheme: SchemeKeyToken, value: token}
}

// BasicBase64Pair renders "Key {base64(id:secret)}".
func BasicBase64Pair(id, secret string) Credentials {
	return Credentials{scheme: SchemeBasicBase64Pair, value: id + ":" + secret}
}

// NewCredentials builds credentials from configuration. For the pair scheme
// value must be "id:secret".
func NewCredentials(scheme AuthScheme, value string) (Credentials, error) {
	switch scheme {
	case SchemeBearerToken:
		return BearerToken(value), nil
	case SchemeKeyToken:
		return KeyToken(value), nil
	case SchemeBasicBase64Pair:
		id, secret, ok := strings.Cut(value, ":")
		if !ok {
			return Credentials{}, fmt.Errorf("relay: %s credentials must be formatted as id:secret", scheme)
		}
		return BasicBase64Pair(id, secret), nil
	default:
		return Credentials{}, fmt.Errorf("relay: unsupported auth scheme %q", scheme)
	}
}

func (c Credentials) Scheme() AuthScheme {
	return c.scheme
}

// IsZero reports whether no credential value was configured.
func (c Credentials) IsZero() bool {
	return c.value == ""
}

// AuthorizationHeader returns the header value for the configured scheme.
func (c Credentials) AuthorizationHeader() string {
	switch c.scheme {
	case SchemeBearerToken:
		return "Bearer " + c.value
	case SchemeKeyToken:
		return "Key " + c.value
	case SchemeBasicBase64Pair:
		return "Key " + base64.StdEncoding.EncodeToString([]byte(c.value))
	default:
		return ""
	}
}

// Lint returns operator-facing warnings about common credential mistakes.
func (c Credentials) Lint() []string {
	var warnings []string
	if c.value == "" {
		return []string{"credential value is empty"}
	}
	if strings.IndexFunc(c.value, unicode.IsSpace) >= 0 {
		warnings = append(warnings, "credential value contains whitespace")
	}
	lower := strings.ToLower(c.value)
	if strings.HasPrefix(lower, "bearer") || strings.HasPrefix(lower, "key ") {
		warnings = append(warnings, "credential value already carries an auth prefix; store the raw token only")
	}
	if c.scheme == SchemeBasicBase64Pair {
		id, secret, _ := strings.Cut(c.value, ":")
		if id == "" || secret == "" {
			warnings = append(warnings, "pair credentials need both id and secret")
		}
	} else if strings.Contains(c.value, ":") {
		warnings = append(warnings, "credential value looks like an id:secret pair; use the basic scheme so it is base64 encoded")
	}
	return warnings
}

// String masks the secret so credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("%s:%s", c.scheme, MaskSecret(c.value))
}

// MaskSecret keeps the first six characters and reports the total length.
func MaskSecret(value string) string {
	if value == "" {
		return "<empty>"
	}
	visible := value
	if len(visible) > 6 {
		visible = visible[:6]
	}
	return fmt.Sprintf("%s... (%d chars)", visible, len(value))
}
