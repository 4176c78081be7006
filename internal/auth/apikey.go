package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIKeyPrefix namespaces keys issued by this service.
	DefaultAPIKeyPrefix = "ainb"

	apiKeyEntropyBytes = 24
)

// APIKeyGenerator produces long-lived bearer keys of the form
// <prefix>_<base36 unix millis>_<base64url random>.
type APIKeyGenerator struct {
	prefix string
	now    func() time.Time
	random io.Reader
}

// NewAPIKeyGenerator returns a generator backed by crypto/rand.
func NewAPIKeyGenerator(prefix string) *APIKeyGenerator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultAPIKeyPrefix
	}
	return &APIKeyGenerator{prefix: prefix, now: time.Now, random: rand.Reader}
}

// Generate returns a fresh key. The random component carries 192 bits.
func (g *APIKeyGenerator) Generate() (string, error) {
	buf := make([]byte, apiKeyEntropyBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read api key entropy: %w", err)
	}
	stamp := strconv.FormatInt(g.now().UnixMilli(), 36)
	return g.prefix + "_" + stamp + "_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Prefix returns the namespace tag.
func (g *APIKeyGenerator) Prefix() string {
	return g.prefix
}
