// Copyright (c) 2026 IP Platform. All rights reserved.

// PostgreSQL implementations of the application storage contracts.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/dberr"
)

// # Application Repository

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the PostgreSQL implementation of [Repository].
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const applicationColumns = `
	id, accountid, status, purpose, organization, adminnote, reviewedby, submittedat, reviewedat, createdat, updatedat`

func scanApplication(row pgx.Row) (*Application, error) {
	app := &Application{}
	err := row.Scan(
		&app.ID,
		&app.AccountID,
		&app.Status,
		&app.Purpose,
		&app.Organization,
		&app.AdminNote,
		&app.ReviewedBy,
		&app.SubmittedAt,
		&app.ReviewedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

/*
Create persists a fresh application record.

Description: One application per account; the unique constraint on accountid
surfaces a duplicate registration as Conflict.

Parameters:
  - context: context.Context
  - app: *Application

Returns:
  - error: Conflict on duplicate, or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, app *Application) error {
	const query = `
		INSERT INTO iam.analyst_application (
			id, accountid, status, purpose, organization, adminnote, reviewedby, submittedat, reviewedat, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		app.ID,
		app.AccountID,
		app.Status,
		app.Purpose,
		app.Organization,
		app.AdminNote,
		app.ReviewedBy,
		app.SubmittedAt,
		app.ReviewedAt,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "application_create")
	}
	return nil
}

// FindByID fetches one application by primary key.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM iam.analyst_application WHERE id = $1`

	app, err := scanApplication(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Application not found")
		}
		return nil, fmt.Errorf("application_find_failed: %w", err)
	}
	return app, nil
}

// FindByAccountID resolves the one-to-one application of an analyst.
func (repository *PostgresRepository) FindByAccountID(context context.Context, accountID string) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM iam.analyst_application WHERE accountid = $1`

	app, err := scanApplication(repository.pool.QueryRow(context, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Application not found")
		}
		return nil, fmt.Errorf("application_find_failed: %w", err)
	}
	return app, nil
}

// UpdateDetails saves purpose and organization.
func (repository *PostgresRepository) UpdateDetails(context context.Context, id, purpose, organization string) error {
	const query = `
		UPDATE iam.analyst_application
		SET purpose = $2, organization = $3, updatedat = NOW()
		WHERE id = $1`

	if _, err := repository.pool.Exec(context, query, id, purpose, organization); err != nil {
		return fmt.Errorf("application_update_details_failed: %w", err)
	}
	return nil
}

// MarkUnderReview flips SUBMITTED to UNDER_REVIEW. The status predicate in
// the WHERE clause makes concurrent admin reads race-free: exactly one
// UPDATE takes effect, the rest match zero rows.
func (repository *PostgresRepository) MarkUnderReview(context context.Context, id string) error {
	const query = `
		UPDATE iam.analyst_application
		SET status = $2, updatedat = NOW()
		WHERE id = $1 AND status = $3`

	if _, err := repository.pool.Exec(context, query, id, StatusUnderReview, StatusSubmitted); err != nil {
		return fmt.Errorf("application_mark_review_failed: %w", err)
	}
	return nil
}

/*
ApplyTransition updates the application and the owning account atomically.

Description: Both UPDATEs run inside one transaction. Review metadata
(reviewer, note, timestamp) and the submission timestamp are written only
when the transition carries them.

Parameters:
  - context: context.Context
  - transition: Transition

Returns:
  - error: Persistence failures; partial application never survives
*/
func (repository *PostgresRepository) ApplyTransition(context context.Context, transition Transition) error {
	tx, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("application_transition_begin_failed: %w", err)
	}
	defer func() { _ = tx.Rollback(context) }()

	const updateApplication = `
		UPDATE iam.analyst_application
		SET status = $2,
		    adminnote = CASE WHEN $3 <> '' THEN $4 ELSE adminnote END,
		    reviewedby = CASE WHEN $3 <> '' THEN $3 ELSE reviewedby END,
		    reviewedat = COALESCE($5, reviewedat),
		    submittedat = COALESCE($6, submittedat),
		    updatedat = NOW()
		WHERE id = $1`

	if _, err := tx.Exec(context, updateApplication,
		transition.ApplicationID,
		transition.ApplicationStatus,
		transition.ReviewedBy,
		transition.AdminNote,
		transition.ReviewedAt,
		transition.SubmittedAt,
	); err != nil {
		return fmt.Errorf("application_transition_failed: %w", err)
	}

	const updateAccount = `
		UPDATE iam.account
		SET status = $2, updatedat = NOW()
		WHERE id = $1`

	if _, err := tx.Exec(context, updateAccount,
		transition.AccountID,
		transition.AccountStatus,
	); err != nil {
		return fmt.Errorf("application_transition_account_failed: %w", err)
	}

	if err := tx.Commit(context); err != nil {
		return fmt.Errorf("application_transition_commit_failed: %w", err)
	}
	return nil
}

// ListByStatus returns a page of applications in the given state, oldest
// submission first (review queue order).
func (repository *PostgresRepository) ListByStatus(context context.Context, status Status, limit, offset int) ([]Application, int, error) {
	query := `SELECT ` + applicationColumns + `
		FROM iam.analyst_application
		WHERE status = $1
		ORDER BY submittedat ASC NULLS LAST, createdat ASC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, query, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("application_list_failed: %w", err)
	}
	defer rows.Close()

	applications, err := collectApplications(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM iam.analyst_application WHERE status = $1`
	if err := repository.pool.QueryRow(context, countQuery, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("application_count_failed: %w", err)
	}

	return applications, total, nil
}

// List returns a page of all applications, newest first.
func (repository *PostgresRepository) List(context context.Context, limit, offset int) ([]Application, int, error) {
	query := `SELECT ` + applicationColumns + `
		FROM iam.analyst_application
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("application_list_failed: %w", err)
	}
	defer rows.Close()

	applications, err := collectApplications(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := repository.pool.QueryRow(context, `SELECT COUNT(*) FROM iam.analyst_application`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("application_count_failed: %w", err)
	}

	return applications, total, nil
}

func collectApplications(rows pgx.Rows) ([]Application, error) {
	applications := []Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("application_scan_failed: %w", err)
		}
		applications = append(applications, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("application_rows_failed: %w", err)
	}
	return applications, nil
}

// # Document Repository

// PostgresDocumentRepository implements [DocumentRepository] using pgx.
type PostgresDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates the PostgreSQL implementation of [DocumentRepository].
func NewDocumentRepository(pool *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{pool: pool}
}

const documentMetaColumns = `
	id, applicationid, doctype, name, contenttype, size, uploadedat`

func scanDocumentMeta(row pgx.Row) (*Document, error) {
	document := &Document{}
	err := row.Scan(
		&document.ID,
		&document.ApplicationID,
		&document.Type,
		&document.Name,
		&document.ContentType,
		&document.Size,
		&document.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return document, nil
}

// Create persists a new document including its content bytes.
func (repository *PostgresDocumentRepository) Create(context context.Context, document *Document) error {
	const query = `
		INSERT INTO iam.application_document (
			id, applicationid, doctype, name, contenttype, size, content, uploadedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if document.UploadedAt.IsZero() {
		document.UploadedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		document.ID,
		document.ApplicationID,
		document.Type,
		document.Name,
		document.ContentType,
		document.Size,
		document.Content,
		document.UploadedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "document_create")
	}
	return nil
}

// FindByID returns document metadata without content bytes.
func (repository *PostgresDocumentRepository) FindByID(context context.Context, id string) (*Document, error) {
	query := `SELECT ` + documentMetaColumns + ` FROM iam.application_document WHERE id = $1`

	document, err := scanDocumentMeta(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Document not found")
		}
		return nil, fmt.Errorf("document_find_failed: %w", err)
	}
	return document, nil
}

// FindFile returns the document including its content bytes.
func (repository *PostgresDocumentRepository) FindFile(context context.Context, id string) (*Document, error) {
	const query = `
		SELECT id, applicationid, doctype, name, contenttype, size, content, uploadedat
		FROM iam.application_document
		WHERE id = $1`

	document := &Document{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&document.ID,
		&document.ApplicationID,
		&document.Type,
		&document.Name,
		&document.ContentType,
		&document.Size,
		&document.Content,
		&document.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Document not found")
		}
		return nil, fmt.Errorf("document_find_failed: %w", err)
	}
	return document, nil
}

// ListByApplication returns metadata for every document of an application.
func (repository *PostgresDocumentRepository) ListByApplication(context context.Context, applicationID string) ([]Document, error) {
	query := `SELECT ` + documentMetaColumns + `
		FROM iam.application_document
		WHERE applicationid = $1
		ORDER BY uploadedat ASC`

	rows, err := repository.pool.Query(context, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("document_list_failed: %w", err)
	}
	defer rows.Close()

	documents := []Document{}
	for rows.Next() {
		document, err := scanDocumentMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("document_scan_failed: %w", err)
		}
		documents = append(documents, *document)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document_rows_failed: %w", err)
	}
	return documents, nil
}

// CountByApplication counts the documents attached to an application.
func (repository *PostgresDocumentRepository) CountByApplication(context context.Context, applicationID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM iam.application_document WHERE applicationid = $1`
	if err := repository.pool.QueryRow(context, query, applicationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("document_count_failed: %w", err)
	}
	return count, nil
}

// Delete removes one document.
func (repository *PostgresDocumentRepository) Delete(context context.Context, id string) error {
	if _, err := repository.pool.Exec(context, `DELETE FROM iam.application_document WHERE id = $1`, id); err != nil {
		return fmt.Errorf("document_delete_failed: %w", err)
	}
	return nil
}
