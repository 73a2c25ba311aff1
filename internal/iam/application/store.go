// Copyright (c) 2026 IP Platform. All rights reserved.

package application

import (
	"context"
	"time"

	"github.com/ipplatform/backend/internal/iam/auth"
)

// # Transitions

// Transition bundles the lockstep status pair applied in one transaction.
type Transition struct {
	ApplicationID string
	AccountID     string

	ApplicationStatus Status
	AccountStatus     auth.AccountStatus

	// Review metadata, written only when ReviewedBy is set.
	ReviewedBy string
	AdminNote  string
	ReviewedAt *time.Time

	// SubmittedAt is written only when non-nil.
	SubmittedAt *time.Time
}

// # Repository Contracts

// Repository persists applications.
//
// The lockstep invariant lives in [Repository.ApplyTransition]: the
// application row and the owning account row change together or not at all.
type Repository interface {
	Create(context context.Context, app *Application) error

	FindByID(context context.Context, id string) (*Application, error)

	// FindByAccountID resolves the one-to-one application of an analyst.
	FindByAccountID(context context.Context, accountID string) (*Application, error)

	// UpdateDetails saves purpose and organization. The caller is
	// responsible for the editability guard.
	UpdateDetails(context context.Context, id, purpose, organization string) error

	// MarkUnderReview flips SUBMITTED to UNDER_REVIEW. A no-op when the
	// application is in any other state, so concurrent admin reads are safe.
	MarkUnderReview(context context.Context, id string) error

	/*
		ApplyTransition updates the application row and the owning account's
		status inside a single transaction.

		Returns:
		  - error: Persistence failures; partial application never survives
	*/
	ApplyTransition(context context.Context, transition Transition) error

	// ListByStatus returns a page of applications in the given state,
	// oldest submission first.
	ListByStatus(context context.Context, status Status, limit, offset int) ([]Application, int, error)

	// List returns a page of all applications, newest first.
	List(context context.Context, limit, offset int) ([]Application, int, error)
}

// DocumentRepository persists identity documents.
type DocumentRepository interface {
	Create(context context.Context, document *Document) error

	// FindByID returns document metadata without content bytes.
	FindByID(context context.Context, id string) (*Document, error)

	// FindFile returns the document including its content bytes.
	FindFile(context context.Context, id string) (*Document, error)

	// ListByApplication returns metadata for every document of an
	// application, upload order.
	ListByApplication(context context.Context, applicationID string) ([]Document, error)

	CountByApplication(context context.Context, applicationID string) (int, error)

	Delete(context context.Context, id string) error
}
