package auth

import (
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// SimpleConfig is an immutable Config implementation. Build it once at process
// start and pass it into the components that need it; the signing secret,
// issuer, and audience are deployment values, never ambient globals.
type SimpleConfig struct {
	SigningKey      string
	SigningMethod   string
	ContextKey      string
	TokenExpiration int
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string
	PasswordCost    int
}

var _ Config = (*SimpleConfig)(nil)

// NewConfig returns a SimpleConfig with defaults applied for every optional
// field. Only the signing key has no usable default.
func NewConfig(signingKey string) *SimpleConfig {
	cfg := &SimpleConfig{SigningKey: signingKey}
	cfg.applyDefaults()
	return cfg
}

func (c *SimpleConfig) applyDefaults() {
	if c.SigningMethod == "" {
		c.SigningMethod = "HS256"
	}
	if c.ContextKey == "" {
		c.ContextKey = "user"
	}
	if c.TokenExpiration == 0 {
		c.TokenExpiration = 24
	}
	if c.TokenLookup == "" {
		c.TokenLookup = "header:Authorization"
	}
	if c.AuthScheme == "" {
		c.AuthScheme = "Bearer"
	}
	if c.PasswordCost == 0 {
		c.PasswordCost = DefaultPasswordCost
	}
}

// Validate checks the configuration for values that would produce unusable
// tokens or hashes.
func (c *SimpleConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("auth config requires a signing key", goerrors.CategoryValidation)
	}

	if c.TokenExpiration < 0 {
		return goerrors.New("token expiration must be a positive number of hours", goerrors.CategoryValidation)
	}

	if c.PasswordCost != 0 && (c.PasswordCost < bcrypt.MinCost || c.PasswordCost > bcrypt.MaxCost) {
		return goerrors.New("password cost outside bcrypt bounds", goerrors.CategoryValidation).
			WithMetadata(map[string]any{
				"cost": c.PasswordCost,
				"min":  bcrypt.MinCost,
				"max":  bcrypt.MaxCost,
			})
	}

	return nil
}

func (c *SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *SimpleConfig) GetContextKey() string    { return c.ContextKey }

// GetTokenExpiration returns the token lifetime in hours.
func (c *SimpleConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c *SimpleConfig) GetTokenLookup() string { return c.TokenLookup }
func (c *SimpleConfig) GetAuthScheme() string  { return c.AuthScheme }
func (c *SimpleConfig) GetIssuer() string      { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string  { return c.Audience }
func (c *SimpleConfig) GetPasswordCost() int   { return c.PasswordCost }
