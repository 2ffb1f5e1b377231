// Package apikey generates API keys in the format the auth middleware
// expects: a random token whose first PrefixLen characters are stored in
// clear for lookup, with the full token kept only as a bcrypt hash.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// PrefixLen is the number of leading characters used for key lookup.
const PrefixLen = 8

const tokenPrefix = "cf_"

// Prefix returns the lookup prefix of a raw key.
func Prefix(raw string) string {
	if len(raw) < PrefixLen {
		return raw
	}
	return raw[:PrefixLen]
}

// Generate creates a new key. The raw token is returned once and never stored.
func Generate(name string, scopes []string) (string, *models.APIKey, error) {
	return generate(name, scopes, bcrypt.DefaultCost)
}

func generate(name string, scopes []string, cost int) (string, *models.APIKey, error) {
	if name == "" {
		return "", nil, fmt.Errorf("%w: key name is required", models.ErrValidation)
	}
	if len(scopes) == 0 {
		return "", nil, fmt.Errorf("%w: at least one scope is required", models.ErrValidation)
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	raw := tokenPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	now := time.Now().UTC()
	key := &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: Prefix(raw),
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return raw, key, nil
}
