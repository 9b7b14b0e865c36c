package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidTokenHash         = errors.New("invalid token hash format")
	ErrIncompatibleTokenVersion = errors.New("incompatible token hash version")
	ErrInvalidToken             = errors.New("application: invalid api token")
)

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams are sized for per-request verification of high
// entropy API tokens.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashToken derives an encoded argon2id hash of token.
func HashToken(token string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyToken reports whether token matches the encoded hash.
func VerifyToken(encodedHash, token string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return ErrInvalidTokenHash
	}

	if parts[1] != "argon2id" {
		return ErrInvalidTokenHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return err
	}
	if version != argon2.Version {
		return ErrIncompatibleTokenVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return err
	}

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return err
	}
	params.KeyLength = uint32(len(decodedHash))

	comparisonHash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1 {
		return nil
	}

	return ErrInvalidToken
}

// APIToken binds an encoded token hash to the role it grants.
type APIToken struct {
	Role Role
	Hash string
}

// ParseAPITokens reads "role=hash" entries separated by semicolons, the format
// of the SCHEDULER_API_TOKENS setting.
func ParseAPITokens(value string) ([]APIToken, error) {
	var tokens []APIToken
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		role, hash, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("api token entry %q: expected role=hash", entry)
		}
		token := APIToken{Role: Role(strings.ToLower(strings.TrimSpace(role))), Hash: strings.TrimSpace(hash)}
		if !token.Role.Valid() {
			return nil, fmt.Errorf("api token entry %q: unknown role %q", entry, role)
		}
		if !strings.HasPrefix(token.Hash, "$argon2id$") {
			return nil, fmt.Errorf("api token entry for role %s: %w", token.Role, ErrInvalidTokenHash)
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// TokenAuthenticator resolves bearer tokens to roles.
type TokenAuthenticator struct {
	tokens []APIToken
}

// NewTokenAuthenticator returns an authenticator over the configured tokens.
func NewTokenAuthenticator(tokens []APIToken) *TokenAuthenticator {
	copied := make([]APIToken, len(tokens))
	copy(copied, tokens)
	return &TokenAuthenticator{tokens: copied}
}

// Enabled reports whether any token is configured.
func (a *TokenAuthenticator) Enabled() bool {
	return a != nil && len(a.tokens) > 0
}

// Authenticate returns the role granted to token or ErrUnauthorized.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (Role, error) {
	token = strings.TrimSpace(token)
	if a == nil || token == "" {
		return "", ErrUnauthorized
	}
	for _, candidate := range a.tokens {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if VerifyToken(candidate.Hash, token) == nil {
			return candidate.Role, nil
		}
	}
	return "", ErrUnauthorized
}
