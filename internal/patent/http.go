// Copyright (c) 2026 IP Platform. All rights reserved.

package patent

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ipplatform/backend/internal/platform/middleware"
	requestutil "github.com/ipplatform/backend/internal/platform/request"
	"github.com/ipplatform/backend/internal/platform/respond"
	"github.com/ipplatform/backend/internal/platform/sec"
	"github.com/ipplatform/backend/internal/platform/validate"
	"github.com/ipplatform/backend/pkg/pagination"
)

// Handler implements the patent-search and asset HTTP endpoints.
type Handler struct {
	patentService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{patentService: service}
}

// SearchRoutes returns the provider proxy routes. Authenticated only.
//
// # Endpoints
//   - GET /search       : Free-text patent search.
//   - GET /{kind}/{id}  : One provider record.
func (handler *Handler) SearchRoutes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)
	router.Get("/search", handler.search)
	router.Get("/{kind}/{id}", handler.detail)

	return router
}

// AssetRoutes returns the saved-asset CRUD routes. Reads require auth;
// mutation requires the analyst role or above.
//
// # Endpoints
//   - GET    /       : Paginated asset listing.
//   - GET    /{id}   : One asset.
//   - POST   /       : Capture an asset (analyst+).
//   - PUT    /{id}   : Update an asset (analyst+).
//   - DELETE /{id}   : Remove an asset (analyst+).
func (handler *Handler) AssetRoutes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)
	router.Get("/", handler.listAssets)
	router.Get("/{assetID}", handler.getAsset)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAnalyst))
		r.Post("/", handler.createAsset)
		r.Put("/{assetID}", handler.updateAsset)
		r.Delete("/{assetID}", handler.deleteAsset)
	})

	return router
}

// # Request Payloads

type assetRequest struct {
	Type         string     `json:"type"`
	AssetNumber  string     `json:"asset_number"`
	Title        string     `json:"title"`
	Assignee     string     `json:"assignee"`
	Inventor     string     `json:"inventor"`
	Jurisdiction string     `json:"jurisdiction"`
	FilingDate   *time.Time `json:"filing_date"`
	Status       string     `json:"status"`
	Class        string     `json:"class"`
	Details      string     `json:"details"`
	APISource    string     `json:"api_source"`
}

func (input assetRequest) toInput() AssetInput {
	return AssetInput{
		Type:         AssetType(input.Type),
		AssetNumber:  input.AssetNumber,
		Title:        input.Title,
		Assignee:     input.Assignee,
		Inventor:     input.Inventor,
		Jurisdiction: input.Jurisdiction,
		FilingDate:   input.FilingDate,
		Status:       input.Status,
		Class:        input.Class,
		Details:      input.Details,
		APISource:    input.APISource,
	}
}

func (input assetRequest) validate() error {
	validator := &validate.Validator{}
	validator.Required(FieldAssetType, input.Type).
		Required(FieldAssetNumber, input.AssetNumber).
		MaxLen(FieldAssetNumber, input.AssetNumber, 64).
		Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, 500)
	return validator.Err()
}

// # Search Endpoints

/*
Search proxies a free-text search to the patent provider.

GET /api/ip/search?q=...&page=N

Response:
  - 200: Provider response verbatim
  - 502: Provider unreachable or failing
*/
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query().Get(FieldQuery)

	validator := &validate.Validator{}
	validator.Required(FieldQuery, query).MaxLen(FieldQuery, query, 500)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := strconv.Atoi(request.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := handler.patentService.Search(request.Context(), query, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Detail proxies a record lookup to the patent provider.

GET /api/ip/{kind}/{id}

Response:
  - 200: Provider response verbatim
  - 404: Unknown record
  - 502: Provider unreachable or failing
*/
func (handler *Handler) detail(writer http.ResponseWriter, request *http.Request) {
	kind := requestutil.Param(request, "kind")
	id := requestutil.Param(request, "id")

	result, err := handler.patentService.Detail(request.Context(), kind, id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// # Asset Endpoints

/*
ListAssets returns a page of saved assets.

GET /api/assets
*/
func (handler *Handler) listAssets(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	assets, meta, err := handler.patentService.ListAssets(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, assets, *meta)
}

/*
GetAsset returns one saved asset.

GET /api/assets/{assetID}
*/
func (handler *Handler) getAsset(writer http.ResponseWriter, request *http.Request) {
	asset, err := handler.patentService.GetAsset(request.Context(), requestutil.Param(request, "assetID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, asset)
}

/*
CreateAsset captures a new asset.

POST /api/assets

Response:
  - 201: Created asset
  - 409: Duplicate asset number
*/
func (handler *Handler) createAsset(writer http.ResponseWriter, request *http.Request) {
	creator, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input assetRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	asset, err := handler.patentService.CreateAsset(request.Context(), creator, input.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, asset)
}

/*
UpdateAsset overwrites an existing asset.

PUT /api/assets/{assetID}
*/
func (handler *Handler) updateAsset(writer http.ResponseWriter, request *http.Request) {
	var input assetRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	asset, err := handler.patentService.UpdateAsset(request.Context(), requestutil.Param(request, "assetID"), input.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, asset)
}

/*
DeleteAsset removes an asset.

DELETE /api/assets/{assetID}
*/
func (handler *Handler) deleteAsset(writer http.ResponseWriter, request *http.Request) {
	if err := handler.patentService.DeleteAsset(request.Context(), requestutil.Param(request, "assetID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
