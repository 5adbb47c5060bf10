package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/archivista/archivista-auth/middleware/jwtware"
)

// RouteAuthenticator wires token validation and error rendering into HTTP
// routes. All responses are JSON; the status code comes from the rich error's
// code so the 400/401/403/404/409 taxonomy holds at the edge.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute returns middleware that validates the bearer token and
// stores its claims under the configured context key.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			ErrorHandler: errorHandler,
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:     cfg.GetAuthScheme(),
			ContextKey:     cfg.GetContextKey(),
			TokenLookup:    cfg.GetTokenLookup(),
			TokenValidator: authClaimsValidator{auth: a.auth},
			SuccessHandler: hf,
		})
	}
}

// authClaimsValidator bridges the module's claim types into the middleware's
// mirrored interfaces, so downstream code always finds the richer claims
// shape on the context.
type authClaimsValidator struct {
	auth Authenticator
}

func (v authClaimsValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.auth.ClaimsFromToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// MakeRouteAuthErrorHandler collapses middleware token failures into the
// single uniform 401. Expired and malformed stay distinguishable in the logs,
// never in the response: the caller must not learn which check tripped. With
// optional set, a failed token lets the request through unauthenticated
// instead of rejecting it.
func (a *RouteAuthenticator) MakeRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", err.Error())
			return ctx.Next()
		}

		reason := "rejected"
		if IsTokenExpiredError(err) {
			reason = "expired"
		} else if IsMalformedError(err) {
			reason = "malformed"
		}
		a.Logger.Info("Token rejected", "reason", reason, "error", err.Error())

		return a.ErrorHandler(ctx, ErrTokenInvalid)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Request error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return RenderErrorJSON(c, richErr)
}

// RenderErrorJSON writes the rich error as the module's JSON error envelope.
// Internal errors keep their metadata out of the response body.
func RenderErrorJSON(c router.Context, richErr *errors.Error) error {
	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	body := map[string]any{
		"message": richErr.Message,
	}

	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	if richErr.Category == errors.CategoryValidation && len(richErr.Metadata) > 0 {
		body["fields"] = richErr.Metadata
	}

	return c.JSON(status, map[string]any{"error": body})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map suitable for the error envelope.
func FormatValidationErrorToMap(err error) map[string]any {
	out := map[string]any{}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, fieldErr := range fieldErrs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}

	out["_"] = err.Error()
	return out
}

// ValidationError wraps an ozzo validation failure as a 400 with per-field
// details in metadata.
func ValidationError(err error) *errors.Error {
	return errors.New("payload validation failed", errors.CategoryValidation).
		WithTextCode("VALIDATION_ERROR").
		WithCode(errors.CodeBadRequest).
		WithMetadata(FormatValidationErrorToMap(err))
}
