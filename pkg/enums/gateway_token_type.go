package enums

import "fmt"

// GatewayTokenType classifies stored payment instruments.
type GatewayTokenType string

const (
	GatewayTokenTypeCard GatewayTokenType = "card"
	GatewayTokenTypeBank GatewayTokenType = "bank_transfer"
)

var validGatewayTokenTypes = []GatewayTokenType{
	GatewayTokenTypeCard,
	GatewayTokenTypeBank,
}

// IsValid reports whether the value is known.
func (t GatewayTokenType) IsValid() bool {
	for _, candidate := range validGatewayTokenTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseGatewayTokenType converts raw input into a GatewayTokenType.
func ParseGatewayTokenType(value string) (GatewayTokenType, error) {
	for _, candidate := range validGatewayTokenTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway token type %q", value)
}
