package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"nodeproof-backend/internal/features/verification/models"
)

const tokenEntropyBytes = 16

// The envelope differs per method for operator usability only; the entropy
// and comparison semantics are identical across methods.
const (
	tokenPrefixSign = "node-verify:"
	tokenPrefixDNS  = "node-verify="
)

// newToken generates a challenge token for the given method from a
// cryptographically secure source.
func newToken(method models.Method) (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	raw := hex.EncodeToString(buf)

	switch method {
	case models.MethodMessageSign:
		return tokenPrefixSign + raw, nil
	case models.MethodDNSTxt:
		return tokenPrefixDNS + raw, nil
	default:
		return raw, nil
	}
}

// instructions renders the operator-facing explanation of how to supply proof.
func instructions(method models.Method, token string) string {
	switch method {
	case models.MethodMessageSign:
		return fmt.Sprintf("Sign the exact message %q with the private key of the address you claim, then submit the proof as \"address:signature\" (signature base64-encoded).", token)
	case models.MethodDNSTxt:
		return fmt.Sprintf("Create a TXT record with the exact value %q on a domain whose A/AAAA records resolve to your node's IP, then submit the domain name as proof.", token)
	case models.MethodHTTPFile:
		return fmt.Sprintf("Serve the exact content %q at /.well-known/node-verify on your node's HTTP endpoint. The crawler confirms it on its next pass.", token)
	case models.MethodUserAgent:
		return fmt.Sprintf("Add %q to your node's user-agent string. The crawler confirms it on its next pass.", token)
	case models.MethodPortChallenge:
		return "Keep your node's service port reachable. The crawler confirms connectivity on its next pass."
	default:
		return ""
	}
}
