// Copyright (c) 2026 IP Platform. All rights reserved.

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ipplatform/backend/internal/platform/middleware"
	requestutil "github.com/ipplatform/backend/internal/platform/request"
	"github.com/ipplatform/backend/internal/platform/respond"
	"github.com/ipplatform/backend/internal/platform/sec"
	"github.com/ipplatform/backend/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// Everything related to session entry and exit points (registration, login,
// rotation, password recovery, Google sign-in). The single-page frontend
// stores both tokens itself, so refresh tokens travel in the JSON body
// rather than in cookies.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /register        : Creates a user or analyst account.
//   - POST /login           : Authenticates and returns a token pair.
//   - POST /admin/login     : Authenticates a seeded administrator.
//   - POST /google          : Exchanges a Google ID token for a session.
//   - POST /refresh         : Rotates a refresh token.
//   - POST /logout          : Revokes one session (idempotent).
//   - POST /forgot-password : Starts the email reset flow.
//   - POST /reset-password  : Completes the email reset flow.
//   - POST /change-password : Rotates the password (authenticated).
//   - POST /logout-all      : Revokes every session (authenticated).
//   - GET  /me              : Returns the caller's own profile.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/admin/login", handler.adminLogin)
	router.Post("/google", handler.googleSignIn)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/change-password", handler.changePassword)
		r.Post("/logout-all", handler.logoutAll)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type googleSignInRequest struct {
	IDToken string `json:"id_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Endpoint Implementations

/*
Register creates a new user or analyst account.

POST /api/auth/register

Description: Validates input, enforces identity uniqueness, and persists the
account. Users come back immediately usable; analysts also receive a token
pair so they can authenticate the document-upload endpoints while their
application is pending.

Request:
  - Body: registerRequest (Username, Email, Password, FullName, Role)

Response:
  - 201: Account profile, plus tokens for analysts
  - 400: Validation failure
  - 409: Username or email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Username(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 50).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Password(FieldPassword, input.Password).
		Required(FieldFullName, input.FullName).
		MaxLen(FieldFullName, input.FullName, 100).
		OneOf(FieldRole, input.Role, string(sec.RoleUser), string(sec.RoleAnalyst))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		FullName: input.FullName,
		Role:     sec.Role(input.Role),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := map[string]any{FieldAccount: result.Account}
	if result.Tokens != nil {
		payload[FieldAccessToken] = result.Tokens.AccessToken
		payload[FieldRefreshToken] = result.Tokens.RefreshToken
		payload[FieldTokenType] = "Bearer"
		payload[FieldExpiresIn] = AccessTokenTTL / time.Second
	}

	respond.Created(writer, payload)
}

/*
Login authenticates a principal and establishes a session.

POST /api/auth/login

Description: Accepts username or email. Remember-me extends the refresh
token lifetime from 7 to 30 days.

Request:
  - Body: loginRequest (Username, Password, RememberMe)

Response:
  - 200: Token pair and account profile
  - 401: Invalid credentials or non-active account status
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Username:   input.Username,
		Password:   input.Password,
		RememberMe: input.RememberMe,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionPayload(&session.TokenPair, map[string]any{
		FieldAccount: session.Account,
	}))
}

/*
AdminLogin authenticates a seeded administrator.

POST /api/auth/admin/login

Response:
  - 200: Token pair and admin profile
  - 401: Invalid credentials or deactivated admin
*/
func (handler *Handler) adminLogin(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.AdminLogin(request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionPayload(&session.TokenPair, map[string]any{
		FieldAccount: session.Admin,
	}))
}

/*
GoogleSignIn exchanges a verified Google ID token for a session.

POST /api/auth/google

Description: Provisions an account on first sign-in, links the Google
subject to an existing account with the same email, or signs in an already
linked account.

Request:
  - Body: googleSignInRequest (IDToken)

Response:
  - 200: Token pair and account profile
  - 401: Rejected ID token or non-active account status
*/
func (handler *Handler) googleSignIn(writer http.ResponseWriter, request *http.Request) {
	var input googleSignInRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIDToken, input.IDToken)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.ProvisionGoogleUser(request.Context(), input.IDToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionPayload(&session.TokenPair, map[string]any{
		FieldAccount: session.Account,
	}))
}

/*
Refresh rotates a refresh token and issues a new access token.

POST /api/auth/refresh

Description: Single-use rotation with reuse detection: presenting a spent or
expired token revokes every session of its owner.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: Rotated token pair
  - 401: Invalid, spent, or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokens, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionPayload(tokens, map[string]any{}))
}

/*
Logout revokes the presented refresh token.

POST /api/auth/logout

Description: Idempotent. Unknown or already-revoked tokens return the same
success response.

Response:
  - 204: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken != "" {
		if err := handler.authService.Logout(request.Context(), input.RefreshToken); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	respond.NoContent(writer)
}

/*
LogoutAll revokes every session of the authenticated principal.

POST /api/auth/logout-all

Response:
  - 204: All sessions terminated
  - 401: Not authenticated
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.LogoutAll(request.Context(), claims.Class, claims.PrincipalID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ForgotPassword starts the email-based password reset flow.

POST /api/auth/forgot-password

Description: Always returns the same success message, whether or not the
email is registered.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Generic acknowledgement
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "If that email is registered, a reset link has been sent.",
	})
}

/*
ResetPassword completes the email-based reset flow.

POST /api/auth/reset-password

Request:
  - Body: resetPasswordRequest (Token, NewPassword)

Response:
  - 200: Password updated, all sessions revoked
  - 401: Invalid or expired reset token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldNewPassword, input.NewPassword).
		Password(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "Password has been reset. Please log in with your new password.",
	})
}

/*
ChangePassword rotates the password of the authenticated principal.

POST /api/auth/change-password

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Password updated, all sessions revoked
  - 401: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principalID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		Password(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), principalID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "Password has been changed. Please log in again.",
	})
}

/*
Me returns the authenticated principal's own profile.

GET /api/auth/me

Response:
  - 200: Account or admin profile
  - 401: Not authenticated
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.authService.Profile(request.Context(), claims.Class, claims.PrincipalID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// sessionPayload merges the standard token fields into an endpoint payload.
func sessionPayload(tokens *TokenPair, payload map[string]any) map[string]any {
	payload[FieldAccessToken] = tokens.AccessToken
	payload[FieldRefreshToken] = tokens.RefreshToken
	payload[FieldTokenType] = "Bearer"
	payload[FieldExpiresIn] = AccessTokenTTL / time.Second
	return payload
}
