// Copyright (c) 2026 IP Platform. All rights reserved.

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/ipplatform/backend/internal/platform/request"
	"github.com/ipplatform/backend/internal/platform/respond"
	"github.com/ipplatform/backend/pkg/pagination"
)

// Handler implements the administrator account-management endpoints.
// Class enforcement happens at the mount point.
type Handler struct {
	adminService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{adminService: service}
}

// Routes returns the account-management routes.
//
// # Endpoints
//   - GET  /users                : Paginated account listing.
//   - POST /users/{id}/suspend   : Suspend an account, kill its sessions.
//   - POST /users/{id}/reinstate : Reactivate a suspended account.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/users", handler.listAccounts)
	router.Post("/users/{accountID}/suspend", handler.suspend)
	router.Post("/users/{accountID}/reinstate", handler.reinstate)

	return router
}

/*
ListAccounts returns a page of accounts, newest first.

GET /api/admin/users

Response:
  - 200: Paginated account listing
*/
func (handler *Handler) listAccounts(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	accounts, meta, err := handler.adminService.ListAccounts(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, accounts, *meta)
}

/*
Suspend suspends an account and revokes all of its sessions.

POST /api/admin/users/{accountID}/suspend

Response:
  - 200: Suspended account
  - 404: Unknown account
  - 409: Already suspended
*/
func (handler *Handler) suspend(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, "accountID")

	account, err := handler.adminService.Suspend(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
Reinstate reactivates a suspended account.

POST /api/admin/users/{accountID}/reinstate

Response:
  - 200: Reinstated account
  - 404: Unknown account
  - 409: Account is not suspended
*/
func (handler *Handler) reinstate(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, "accountID")

	account, err := handler.adminService.Reinstate(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}
