// Copyright (c) 2026 IP Platform. All rights reserved.

package application

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/constants"
	"github.com/ipplatform/backend/internal/platform/middleware"
	requestutil "github.com/ipplatform/backend/internal/platform/request"
	"github.com/ipplatform/backend/internal/platform/respond"
	"github.com/ipplatform/backend/internal/platform/sec"
	"github.com/ipplatform/backend/internal/platform/validate"
	"github.com/ipplatform/backend/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the application workflow HTTP endpoints: the analyst
// side (own application, uploads, submission) and the admin review side.
type Handler struct {
	applicationService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{applicationService: service}
}

// AnalystRoutes returns the routes an analyst uses on their own application.
//
// # Endpoints
//   - GET    /application                : Own application with documents.
//   - PUT    /application                : Save purpose and organization.
//   - POST   /application/documents      : Multipart document upload.
//   - DELETE /application/documents/{id} : Remove a document pre-submission.
//   - POST   /application/submit         : Lock and queue for review.
func (handler *Handler) AnalystRoutes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)
	router.Use(middleware.RequireClass(sec.ClassAnalyst))

	router.Get("/application", handler.myApplication)
	router.Put("/application", handler.saveDetails)
	router.Post("/application/documents", handler.uploadDocument)
	router.Delete("/application/documents/{documentID}", handler.deleteDocument)
	router.Post("/application/submit", handler.submit)

	return router
}

// AdminRoutes returns the review-side routes. Class enforcement happens at
// the mount point together with the other admin routes.
//
// # Endpoints
//   - GET  /pending                          : Review queue, oldest first.
//   - GET  /all                              : Every application, paginated.
//   - GET  /{id}                             : Open one application.
//   - GET  /{id}/documents/{docID}/view      : Stream a document inline.
//   - POST /{id}/approve                     : Activate the analyst.
//   - POST /{id}/reject                      : Decline with a reason.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/pending", handler.pendingQueue)
	router.Get("/all", handler.listAll)
	router.Get("/{applicationID}", handler.details)
	router.Get("/{applicationID}/documents/{documentID}/view", handler.viewDocument)
	router.Post("/{applicationID}/approve", handler.approve)
	router.Post("/{applicationID}/reject", handler.reject)

	return router
}

// # Request Payloads

type saveDetailsRequest struct {
	Purpose      string `json:"purpose"`
	Organization string `json:"organization"`
}

type reviewRequest struct {
	Note string `json:"note"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// # Analyst Endpoints

/*
MyApplication returns the caller's application with document metadata.

GET /api/analyst/application

Response:
  - 200: Application with documents
  - 404: Caller has no application
*/
func (handler *Handler) myApplication(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	app, err := handler.applicationService.MyApplication(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

/*
SaveDetails stores purpose and organization before submission.

PUT /api/analyst/application

Request:
  - Body: saveDetailsRequest (Purpose, Organization)

Response:
  - 200: Updated application
  - 409: Application already submitted
*/
func (handler *Handler) saveDetails(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input saveDetailsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldPurpose, input.Purpose).
		MaxLen(FieldPurpose, input.Purpose, 2000).
		MaxLen(FieldOrganization, input.Organization, 200)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	app, err := handler.applicationService.SaveDetails(request.Context(), accountID, input.Purpose, input.Organization)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

/*
UploadDocument attaches an identity document.

POST /api/analyst/application/documents

Description: Multipart form with a "file" part and a "type" field naming the
document category. JPEG, PNG, and PDF up to 5 MB.

Response:
  - 201: Stored document metadata
  - 400: Unsupported type, oversized, or malformed upload
  - 409: Application already submitted
*/
func (handler *Handler) uploadDocument(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// MaxBytesReader caps the whole request so an oversized upload fails
	// before it is buffered in full.
	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxDocumentBytes+1<<20)
	if err := request.ParseMultipartForm(constants.MaxDocumentBytes); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Malformed or oversized upload"))
		return
	}

	file, header, err := request.FormFile(FieldFile)
	if err != nil {
		respond.Error(writer, request, validate.RequiredError(FieldFile, "A file part is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Upload could not be read"))
		return
	}

	document, err := handler.applicationService.UploadDocument(request.Context(), accountID, UploadInput{
		Type:        DocumentType(request.FormValue(FieldType)),
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, document)
}

/*
DeleteDocument removes a document before submission.

DELETE /api/analyst/application/documents/{documentID}

Response:
  - 204: Document removed
  - 404: Unknown document
  - 409: Application already submitted
*/
func (handler *Handler) deleteDocument(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	documentID := requestutil.Param(request, "documentID")
	if err := handler.applicationService.DeleteDocument(request.Context(), accountID, documentID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Submit locks the application and queues it for review.

POST /api/analyst/application/submit

Response:
  - 200: Submitted application
  - 400: No documents attached
  - 409: Application already submitted
*/
func (handler *Handler) submit(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	app, err := handler.applicationService.Submit(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

// # Admin Endpoints

/*
PendingQueue lists submitted applications, oldest first.

GET /api/admin/analyst-applications/pending
*/
func (handler *Handler) pendingQueue(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	applications, meta, err := handler.applicationService.PendingQueue(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, applications, *meta)
}

/*
ListAll lists every application, newest first.

GET /api/admin/analyst-applications/all
*/
func (handler *Handler) listAll(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	applications, meta, err := handler.applicationService.ListAll(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, applications, *meta)
}

/*
Details opens one application for review.

GET /api/admin/analyst-applications/{applicationID}

Description: The first open of a submitted application moves it to
UNDER_REVIEW.

Response:
  - 200: Application with document metadata
  - 404: Unknown application
*/
func (handler *Handler) details(writer http.ResponseWriter, request *http.Request) {
	applicationID := requestutil.Param(request, "applicationID")

	app, err := handler.applicationService.Details(request.Context(), applicationID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

/*
ViewDocument streams a document inline for review.

GET /api/admin/analyst-applications/{applicationID}/documents/{documentID}/view

Response:
  - 200: Raw document bytes with original content type
  - 404: Unknown document
*/
func (handler *Handler) viewDocument(writer http.ResponseWriter, request *http.Request) {
	applicationID := requestutil.Param(request, "applicationID")
	documentID := requestutil.Param(request, "documentID")

	document, err := handler.applicationService.DocumentFile(request.Context(), applicationID, documentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Blob(writer, document.ContentType, document.Name, document.Content)
}

/*
Approve activates the analyst.

POST /api/admin/analyst-applications/{applicationID}/approve

Request:
  - Body: reviewRequest (Note, optional)

Response:
  - 200: Approved application
  - 409: Not yet submitted, or already approved
*/
func (handler *Handler) approve(writer http.ResponseWriter, request *http.Request) {
	reviewer, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input reviewRequest
	if request.ContentLength > 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, validate.ErrInvalidJSON)
			return
		}
	}

	applicationID := requestutil.Param(request, "applicationID")
	app, err := handler.applicationService.Approve(request.Context(), applicationID, reviewer, input.Note)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}

/*
Reject declines the application with a reason.

POST /api/admin/analyst-applications/{applicationID}/reject

Request:
  - Body: rejectRequest (Reason)

Response:
  - 200: Rejected application
  - 409: Not yet submitted, or already approved
*/
func (handler *Handler) reject(writer http.ResponseWriter, request *http.Request) {
	reviewer, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input rejectRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldReason, input.Reason).MaxLen(FieldReason, input.Reason, 2000)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	applicationID := requestutil.Param(request, "applicationID")
	app, err := handler.applicationService.Reject(request.Context(), applicationID, reviewer, input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, app)
}
