package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	TextCodeInsufficientRole   = "INSUFFICIENT_ROLE"
	TextCodeAccountExists      = "ACCOUNT_EXISTS"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeUnknownRole        = "UNKNOWN_ROLE"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM"
)

// ErrInvalidCredentials is the single error surfaced for every failed login:
// unknown email, wrong password, or inactive account. Collapsing the cases
// keeps the response from confirming which accounts exist.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned by the hashing policy when a
// plaintext does not verify against a stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("hashed password mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when asked to hash an empty password.
var ErrNoEmptyString = goerrors.New("refusing to hash an empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenInvalid is the single token rejection surfaced at the HTTP edge.
// Expired, bad signature, and issuer/audience mismatch all render this same
// 401: a distinguishable expiry response would confirm a captured token was
// genuinely issued here. The expired/malformed pair below stays internal for
// logs and programmatic checks.
var ErrTokenInvalid = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers every other token rejection: bad signature,
// issuer/audience mismatch, undecodable payload. Callers get a uniform 401
// with no hint of which check failed.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotAuthenticated is returned by gates when no valid token accompanied
// the request.
var ErrNotAuthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrInsufficientRole is returned when a valid identity lacks the role an
// operation requires. Distinct from ErrNotAuthenticated: 403, not 401.
var ErrInsufficientRole = goerrors.New("insufficient role", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(goerrors.CodeForbidden)

// ErrAccountExists is the generic registration conflict. It deliberately does
// not say whether the username or the email collided.
var ErrAccountExists = goerrors.New("an account with that username or email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(goerrors.CodeConflict)

// ErrEmailTaken is the field-specific conflict for profile updates, where the
// caller already proved who they are.
var ErrEmailTaken = goerrors.New("email is already taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrUsernameTaken is the field-specific conflict for profile updates.
var ErrUsernameTaken = goerrors.New("username is already taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrAccountNotFound is returned when operating on a non-existent account.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnknownRole is returned when a role id or name falls outside the seeded
// vocabulary.
var ErrUnknownRole = goerrors.New("unknown role", goerrors.CategoryValidation).
	WithTextCode(TextCodeUnknownRole).
	WithCode(goerrors.CodeBadRequest)

// ErrImmutableClaimMutation is returned when a claims decorator touches a
// registered claim or the role snapshot. Decorators are deployment config,
// so this is an internal fault, not a caller error.
var ErrImmutableClaimMutation = goerrors.New("claims decorator mutated an immutable claim", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(goerrors.CodeInternal)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation reports whether err is a storage-layer unique constraint
// rejection. We match driver messages rather than driver types so the same
// repositories work against sqlite (tests, dev) and postgres (deployments).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// conflictFromUniqueViolation maps a storage unique violation to the field it
// names when the driver message identifies the column, falling back to the
// generic conflict otherwise. Callers on unauthenticated paths should collapse
// the result to ErrAccountExists before it reaches the wire.
func conflictFromUniqueViolation(err error) *goerrors.Error {
	msg := strings.ToLower(err.Error())

	var conflict *goerrors.Error
	switch {
	case strings.Contains(msg, "username"):
		conflict = ErrUsernameTaken
	case strings.Contains(msg, "email"):
		conflict = ErrEmailTaken
	default:
		conflict = ErrAccountExists
	}

	return goerrors.Wrap(err, conflict.Category, conflict.Message).
		WithTextCode(conflict.TextCode).
		WithCode(conflict.Code)
}

// IsConflictError reports whether err carries the conflict category.
func IsConflictError(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryConflict
	}
	return false
}
