// Copyright (c) 2026 IP Platform. All rights reserved.

package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/constants"
	"github.com/ipplatform/backend/internal/platform/mail"
	"github.com/ipplatform/backend/internal/platform/sec"
	"github.com/ipplatform/backend/pkg/pagination"
)

// Accepted upload content types. Anything else is rejected before touching
// storage.
var acceptedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// # Service

// Service implements the analyst application workflow use cases.
type Service struct {
	applications Repository
	documents    DocumentRepository
	accounts     auth.AccountRepository
	sessions     auth.SessionRepository
	notifier     mail.Notifier
	logger       *slog.Logger
}

// NewService constructs the application [Service] with its dependencies.
func NewService(
	applications Repository,
	documents DocumentRepository,
	accounts auth.AccountRepository,
	sessions auth.SessionRepository,
	notifier mail.Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		applications: applications,
		documents:    documents,
		accounts:     accounts,
		sessions:     sessions,
		notifier:     notifier,
		logger:       logger,
	}
}

/*
CreateEmpty creates the blank application shell at analyst registration.

Description: Satisfies the creation hook the auth package calls outward to.
The shell starts in AWAITING_DOCUMENTS with no details attached.

Parameters:
  - context: context.Context
  - accountID: string
*/
func (service *Service) CreateEmpty(context context.Context, accountID string) error {
	app := &Application{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Status:    StatusAwaitingDocuments,
	}
	if err := service.applications.Create(context, app); err != nil {
		return fmt.Errorf("application_service_create_failed: %w", err)
	}
	return nil
}

// # Analyst Operations

/*
MyApplication returns the caller's own application with document metadata.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Application: Application with document listing attached
  - error: NotFound when the caller has no application
*/
func (service *Service) MyApplication(context context.Context, accountID string) (*Application, error) {
	app, err := service.applications.FindByAccountID(context, accountID)
	if err != nil {
		return nil, err
	}

	documents, err := service.documents.ListByApplication(context, app.ID)
	if err != nil {
		return nil, err
	}
	app.Documents = documents

	return app, nil
}

/*
SaveDetails stores purpose and organization on an editable application.

Description: Allowed only while the application is still AWAITING_DOCUMENTS.
After submission the record belongs to the review side.

Parameters:
  - context: context.Context
  - accountID: string
  - purpose: string
  - organization: string

Returns:
  - *Application: Updated application
  - error: ApplicationLocked once submitted
*/
func (service *Service) SaveDetails(context context.Context, accountID, purpose, organization string) (*Application, error) {
	app, err := service.applications.FindByAccountID(context, accountID)
	if err != nil {
		return nil, err
	}
	if !app.Status.Editable() {
		return nil, applicationLockedError()
	}

	if err := service.applications.UpdateDetails(context, app.ID, purpose, organization); err != nil {
		return nil, fmt.Errorf("application_service_save_details_failed: %w", err)
	}

	app.Purpose = purpose
	app.Organization = organization
	return app, nil
}

// UploadInput carries one identity document to attach.
type UploadInput struct {
	Type        DocumentType
	Name        string
	ContentType string
	Content     []byte
}

/*
UploadDocument attaches an identity document to an editable application.

Description: Accepts JPEG, PNG, and PDF up to the configured size cap.
Content is stored inline in Postgres.

Parameters:
  - context: context.Context
  - accountID: string
  - input: UploadInput

Returns:
  - *Document: Stored document metadata
  - error: ApplicationLocked, or validation failures on type/size
*/
func (service *Service) UploadDocument(context context.Context, accountID string, input UploadInput) (*Document, error) {
	app, err := service.applications.FindByAccountID(context, accountID)
	if err != nil {
		return nil, err
	}
	if !app.Status.Editable() {
		return nil, applicationLockedError()
	}

	if !input.Type.Valid() {
		return nil, apperr.ValidationError("Unknown document type")
	}
	if !acceptedContentTypes[input.ContentType] {
		return nil, apperr.ValidationError("Only JPEG, PNG, and PDF documents are accepted")
	}
	if len(input.Content) == 0 {
		return nil, apperr.ValidationError("Document content is empty")
	}
	if int64(len(input.Content)) > constants.MaxDocumentBytes {
		return nil, apperr.ValidationError("Document exceeds the 5 MB size limit")
	}

	document := &Document{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
		Type:          input.Type,
		Name:          input.Name,
		ContentType:   input.ContentType,
		Size:          int64(len(input.Content)),
		Content:       input.Content,
	}
	if err := service.documents.Create(context, document); err != nil {
		return nil, fmt.Errorf("application_service_upload_failed: %w", err)
	}

	document.Content = nil
	return document, nil
}

/*
DeleteDocument removes a document from an editable application.

Parameters:
  - context: context.Context
  - accountID: string
  - documentID: string

Returns:
  - error: NotFound for foreign documents, ApplicationLocked once submitted
*/
func (service *Service) DeleteDocument(context context.Context, accountID, documentID string) error {
	app, err := service.applications.FindByAccountID(context, accountID)
	if err != nil {
		return err
	}
	if !app.Status.Editable() {
		return applicationLockedError()
	}

	document, err := service.documents.FindByID(context, documentID)
	if err != nil {
		return err
	}
	if document.ApplicationID != app.ID {
		// Never confirm that the document exists under someone else's application.
		return apperr.NotFound("Document not found")
	}

	if err := service.documents.Delete(context, documentID); err != nil {
		return fmt.Errorf("application_service_delete_failed: %w", err)
	}
	return nil
}

/*
Submit locks the application and queues it for review.

Description: Requires at least one attached document. Moves the application
to SUBMITTED and the account to PENDING_REVIEW in one transaction, then
confirms by mail.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Application: Submitted application
  - error: EmptyApplication without documents, ApplicationLocked if already submitted
*/
func (service *Service) Submit(context context.Context, accountID string) (*Application, error) {
	app, err := service.applications.FindByAccountID(context, accountID)
	if err != nil {
		return nil, err
	}
	if !app.Status.Editable() {
		return nil, applicationLockedError()
	}

	count, err := service.documents.CountByApplication(context, app.ID)
	if err != nil {
		return nil, fmt.Errorf("application_service_submit_failed: %w", err)
	}
	if count == 0 {
		return nil, apperr.ValidationError("At least one document must be uploaded before submission").
			WithCode("EMPTY_APPLICATION")
	}

	now := time.Now()
	transition := Transition{
		ApplicationID:     app.ID,
		AccountID:         accountID,
		ApplicationStatus: StatusSubmitted,
		AccountStatus:     auth.StatusPendingReview,
		SubmittedAt:       &now,
	}
	if err := service.applications.ApplyTransition(context, transition); err != nil {
		return nil, err
	}

	app.Status = StatusSubmitted
	app.SubmittedAt = &now

	service.notifyAccount(context, accountID, func(account *auth.Account) error {
		return service.notifier.SendApplicationSubmitted(account.Email, account.FullName)
	})

	return app, nil
}

// # Admin Operations

/*
PendingQueue lists applications waiting for review, oldest submission first.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []Application: One page of the queue
  - *pagination.Meta: Paging metadata
  - error: Storage failures
*/
func (service *Service) PendingQueue(context context.Context, params pagination.Params) ([]Application, *pagination.Meta, error) {
	applications, total, err := service.applications.ListByStatus(context, StatusSubmitted, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, err
	}
	meta := pagination.NewMeta(params.Page, params.Limit, total)
	return applications, &meta, nil
}

/*
ListAll lists every application regardless of state, newest first.
*/
func (service *Service) ListAll(context context.Context, params pagination.Params) ([]Application, *pagination.Meta, error) {
	applications, total, err := service.applications.List(context, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, err
	}
	meta := pagination.NewMeta(params.Page, params.Limit, total)
	return applications, &meta, nil
}

/*
Details opens an application for review.

Description: The first open of a SUBMITTED application moves it to
UNDER_REVIEW as a side effect of the read. The flip is a conditional update,
so repeated or concurrent opens change nothing further.

Parameters:
  - context: context.Context
  - applicationID: string

Returns:
  - *Application: Application with document metadata attached
  - error: NotFound or storage failures
*/
func (service *Service) Details(context context.Context, applicationID string) (*Application, error) {
	app, err := service.applications.FindByID(context, applicationID)
	if err != nil {
		return nil, err
	}

	if app.Status == StatusSubmitted {
		if err := service.applications.MarkUnderReview(context, app.ID); err != nil {
			return nil, err
		}
		app.Status = StatusUnderReview
	}

	documents, err := service.documents.ListByApplication(context, app.ID)
	if err != nil {
		return nil, err
	}
	app.Documents = documents

	return app, nil
}

/*
DocumentFile returns a document with its content bytes for admin viewing.

Parameters:
  - context: context.Context
  - applicationID: string
  - documentID: string

Returns:
  - *Document: Document including content bytes
  - error: NotFound when unknown or attached to a different application
*/
func (service *Service) DocumentFile(context context.Context, applicationID, documentID string) (*Document, error) {
	document, err := service.documents.FindFile(context, documentID)
	if err != nil {
		return nil, err
	}
	if document.ApplicationID != applicationID {
		return nil, apperr.NotFound("Document not found")
	}
	return document, nil
}

/*
Approve activates the analyst.

Description: Moves the application to APPROVED and the account to ACTIVE in
one transaction, then notifies the analyst. Every session of the analyst
stays valid; approval only widens what the account can do.

Parameters:
  - context: context.Context
  - applicationID: string
  - reviewer: string (Admin username)
  - note: string (Optional admin note)

Returns:
  - *Application: Approved application
  - error: NotYetSubmitted before submission, AlreadyApproved on repeat
*/
func (service *Service) Approve(context context.Context, applicationID, reviewer, note string) (*Application, error) {
	app, err := service.applications.FindByID(context, applicationID)
	if err != nil {
		return nil, err
	}

	switch app.Status {
	case StatusAwaitingDocuments:
		return nil, notYetSubmittedError()
	case StatusApproved:
		return nil, apperr.Conflict("Application has already been approved").WithCode("ALREADY_APPROVED")
	}

	now := time.Now()
	transition := Transition{
		ApplicationID:     app.ID,
		AccountID:         app.AccountID,
		ApplicationStatus: StatusApproved,
		AccountStatus:     auth.StatusActive,
		ReviewedBy:        reviewer,
		AdminNote:         note,
		ReviewedAt:        &now,
	}
	if err := service.applications.ApplyTransition(context, transition); err != nil {
		return nil, err
	}

	app.Status = StatusApproved
	app.ReviewedBy = reviewer
	app.AdminNote = note
	app.ReviewedAt = &now

	service.notifyAccount(context, app.AccountID, func(account *auth.Account) error {
		return service.notifier.SendApplicationApproved(account.Email, account.FullName)
	})

	return app, nil
}

/*
Reject declines the application.

Description: Moves the application and account to REJECTED in one
transaction, revokes every session of the analyst (the registration
carve-out token dies here), and notifies with the stated reason.

Parameters:
  - context: context.Context
  - applicationID: string
  - reviewer: string (Admin username)
  - reason: string

Returns:
  - *Application: Rejected application
  - error: NotYetSubmitted before submission, CannotRejectApproved after approval
*/
func (service *Service) Reject(context context.Context, applicationID, reviewer, reason string) (*Application, error) {
	app, err := service.applications.FindByID(context, applicationID)
	if err != nil {
		return nil, err
	}

	switch app.Status {
	case StatusAwaitingDocuments:
		return nil, notYetSubmittedError()
	case StatusApproved:
		return nil, apperr.Conflict("An approved application cannot be rejected").WithCode("CANNOT_REJECT_APPROVED")
	}

	now := time.Now()
	transition := Transition{
		ApplicationID:     app.ID,
		AccountID:         app.AccountID,
		ApplicationStatus: StatusRejected,
		AccountStatus:     auth.StatusRejected,
		ReviewedBy:        reviewer,
		AdminNote:         reason,
		ReviewedAt:        &now,
	}
	if err := service.applications.ApplyTransition(context, transition); err != nil {
		return nil, err
	}

	account, findErr := service.accounts.FindByID(context, app.AccountID)

	class := sec.ClassAnalyst
	if findErr == nil {
		class = account.Class
	}
	if err := service.sessions.RevokeAllForSubject(context, class, app.AccountID); err != nil {
		service.logger.Warn("application_reject_revoke_failed", "error", err.Error())
	}

	app.Status = StatusRejected
	app.ReviewedBy = reviewer
	app.AdminNote = reason
	app.ReviewedAt = &now

	if findErr == nil {
		service.sendAsync("application_rejected", func() error {
			return service.notifier.SendApplicationRejected(account.Email, account.FullName, reason)
		})
	}

	return app, nil
}

// # Internal Helpers

// notifyAccount resolves the account and fires a best-effort notification.
func (service *Service) notifyAccount(context context.Context, accountID string, send func(*auth.Account) error) {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		service.logger.Warn("application_notify_lookup_failed", "account_id", accountID)
		return
	}
	service.sendAsync("application_status", func() error {
		return send(account)
	})
}

// sendAsync delivers mail without blocking; failures are logged and dropped.
func (service *Service) sendAsync(template string, send func() error) {
	logger := service.logger
	go func() {
		if err := send(); err != nil {
			logger.Warn("mail_send_failed",
				slog.String("template", template),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func applicationLockedError() *apperr.AppError {
	return apperr.Conflict("Application can no longer be modified").WithCode("APPLICATION_LOCKED")
}

func notYetSubmittedError() *apperr.AppError {
	return apperr.Conflict("Application has not been submitted yet").WithCode("NOT_YET_SUBMITTED")
}
