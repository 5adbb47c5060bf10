package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the account lifecycle over JSON routes.
type HTTPController struct {
	manager *AccountManager
	config  HTTPConfig
	Logger  Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// ContextKey is the router locals key the JWT middleware stores claims
	// under (default: "user")
	ContextKey string

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// NewHTTPController creates a new account lifecycle HTTP controller.
func NewHTTPController(manager *AccountManager, cfg HTTPConfig) *HTTPController {
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	return &HTTPController{
		manager: manager,
		config:  cfg,
		Logger:  defLogger{},
	}
}

// RegisterPublicRoutes registers the routes that need no token.
func (c *HTTPController) RegisterPublicRoutes(group RouteRegistrar) {
	group.Post("/auth/register", c.Register)
	group.Post("/auth/login", c.Login)
}

// RegisterProtectedRoutes registers the self-service routes. Mount behind the
// JWT middleware.
func (c *HTTPController) RegisterProtectedRoutes(group RouteRegistrar) {
	group.Get("/profile", c.Profile, RequireAuthenticated(c.config.ContextKey))
	group.Put("/profile", c.UpdateProfile, RequireAuthenticated(c.config.ContextKey))
}

// RegisterAdminRoutes registers the user-administration routes. Mount behind
// the JWT middleware; every route is additionally gated on the Admin role.
func (c *HTTPController) RegisterAdminRoutes(group RouteRegistrar) {
	admin := RequireRole(c.config.ContextKey, RoleAdmin)

	group.Get("/users", c.ListAccounts, admin)
	group.Post("/users", c.CreateAccount, admin)
	group.Get("/users/:id", c.GetAccount, admin)
	group.Put("/users/:id", c.AdminUpdateAccount, admin)
	group.Delete("/users/:id", c.DeleteAccount, admin)
	group.Put("/users/:id/roles", c.ReplaceRoles, admin)
	group.Put("/users/:id/status", c.SetStatus, admin)
}

// RegisterPayload is the self-service registration body.
type RegisterPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(1, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 50)),
	)
}

// LoginPayload is the login body.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// UpdateProfilePayload is the partial self-service profile update body.
type UpdateProfilePayload struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Validate will validate the payload
func (r UpdateProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(1, 100), is.Email),
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, 50)),
	)
}

// CreateAccountPayload is the administrative creation body.
type CreateAccountPayload struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
	IsActive  *bool    `json:"is_active"`
}

// Validate will validate the payload
func (r CreateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(1, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 50)),
	)
}

// ReplaceRolesPayload is the role replacement body. An empty list is legal
// and strips every role.
type ReplaceRolesPayload struct {
	Roles []string `json:"roles"`
}

// Validate will validate the payload
func (r ReplaceRolesPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Roles, validation.NotNil),
	)
}

// SetStatusPayload is the activation toggle body.
type SetStatusPayload struct {
	IsActive *bool `json:"is_active"`
}

// Validate will validate the payload
func (r SetStatusPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsActive, validation.NotNil),
	)
}

// Register handles self-service registration and logs the account in.
func (c *HTTPController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("register parse payload", "error", err)
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	result, err := c.manager.Register(ctx.Context(), RegisterInput{
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, result)
}

// Login exchanges credentials for a token.
func (c *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("login parse payload", "error", err)
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	result, err := c.manager.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// Profile returns the caller's own account.
func (c *HTTPController) Profile(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, c.config.ContextKey)
	if !ok {
		return c.handleError(ctx, ErrNotAuthenticated)
	}

	account, err := c.manager.GetAccount(ctx.Context(), principal.AccountID)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

// UpdateProfile applies a partial update to the caller's own account.
func (c *HTTPController) UpdateProfile(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, c.config.ContextKey)
	if !ok {
		return c.handleError(ctx, ErrNotAuthenticated)
	}

	payload := new(UpdateProfilePayload)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	account, err := c.manager.UpdateProfile(ctx.Context(), principal.AccountID, UpdateProfileInput{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

// ListAccounts returns every account.
func (c *HTTPController) ListAccounts(ctx router.Context) error {
	accounts, err := c.manager.ListAccounts(ctx.Context())
	if err != nil {
		return c.handleError(ctx, err)
	}

	profiles := make([]PublicProfile, 0, len(accounts))
	for _, account := range accounts {
		profiles = append(profiles, account.Profile())
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": profiles,
	})
}

// CreateAccount is the administrative creation endpoint.
func (c *HTTPController) CreateAccount(ctx router.Context) error {
	payload := new(CreateAccountPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	account, err := c.manager.CreateAccount(ctx.Context(), CreateAccountInput{
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Roles:     payload.Roles,
		IsActive:  payload.IsActive,
	})
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, account.Profile())
}

// GetAccount fetches a single account by id.
func (c *HTTPController) GetAccount(ctx router.Context) error {
	id, err := parseAccountID(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrAccountNotFound)
	}

	account, err := c.manager.GetAccount(ctx.Context(), id)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

// AdminUpdateAccount applies a partial update to any account.
func (c *HTTPController) AdminUpdateAccount(ctx router.Context) error {
	id, err := parseAccountID(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrAccountNotFound)
	}

	payload := new(UpdateProfilePayload)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	account, err := c.manager.UpdateProfile(ctx.Context(), id, UpdateProfileInput{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

// DeleteAccount removes an account and its memberships.
func (c *HTTPController) DeleteAccount(ctx router.Context) error {
	id, err := parseAccountID(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrAccountNotFound)
	}

	if err := c.manager.DeleteAccount(ctx.Context(), id); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "deleted",
	})
}

// ReplaceRoles overwrites an account's role memberships.
func (c *HTTPController) ReplaceRoles(ctx router.Context) error {
	id, err := parseAccountID(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrAccountNotFound)
	}

	payload := new(ReplaceRolesPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	account, err := c.manager.ReplaceRoles(ctx.Context(), id, payload.Roles)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

// SetStatus toggles an account's active flag.
func (c *HTTPController) SetStatus(ctx router.Context) error {
	id, err := parseAccountID(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrAccountNotFound)
	}

	payload := new(SetStatusPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, badRequestBody(err))
	}

	if err := payload.Validate(); err != nil {
		return c.handleError(ctx, ValidationError(err))
	}

	account, err := c.manager.SetActive(ctx.Context(), id, *payload.IsActive)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	return RenderErrorJSON(ctx, richErr)
}

func badRequestBody(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse request body").
		WithTextCode("INVALID_BODY").
		WithCode(goerrors.CodeBadRequest)
}
