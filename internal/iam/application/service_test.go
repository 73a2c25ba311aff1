// Copyright (c) 2026 IP Platform. All rights reserved.

package application_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipplatform/backend/internal/iam/application"
	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/mail"
	"github.com/ipplatform/backend/internal/platform/sec"
)

// In-memory doubles. The application store double shares an account-status
// map with the account stub so tests can observe the lockstep invariant.

type memApplications struct {
	mu           sync.Mutex
	applications map[string]*application.Application
	statuses     map[string]auth.AccountStatus
}

func (m *memApplications) Create(_ context.Context, app *application.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.applications {
		if existing.AccountID == app.AccountID {
			return apperr.Conflict("Resource already exists")
		}
	}
	clone := *app
	clone.CreatedAt = time.Now()
	m.applications[app.ID] = &clone
	return nil
}

func (m *memApplications) FindByID(_ context.Context, id string) (*application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app, ok := m.applications[id]; ok {
		clone := *app
		return &clone, nil
	}
	return nil, apperr.NotFound("Application not found")
}

func (m *memApplications) FindByAccountID(_ context.Context, accountID string) (*application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.applications {
		if app.AccountID == accountID {
			clone := *app
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Application not found")
}

func (m *memApplications) UpdateDetails(_ context.Context, id, purpose, organization string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app, ok := m.applications[id]; ok {
		app.Purpose = purpose
		app.Organization = organization
	}
	return nil
}

func (m *memApplications) MarkUnderReview(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app, ok := m.applications[id]; ok && app.Status == application.StatusSubmitted {
		app.Status = application.StatusUnderReview
	}
	return nil
}

func (m *memApplications) ApplyTransition(_ context.Context, transition application.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[transition.ApplicationID]
	if !ok {
		return apperr.NotFound("Application not found")
	}
	app.Status = transition.ApplicationStatus
	if transition.ReviewedBy != "" {
		app.ReviewedBy = transition.ReviewedBy
		app.AdminNote = transition.AdminNote
		app.ReviewedAt = transition.ReviewedAt
	}
	if transition.SubmittedAt != nil {
		app.SubmittedAt = transition.SubmittedAt
	}
	// Lockstep: both rows move in the same "transaction".
	m.statuses[transition.AccountID] = transition.AccountStatus
	return nil
}

func (m *memApplications) ListByStatus(_ context.Context, status application.Status, limit, offset int) ([]application.Application, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []application.Application{}
	for _, app := range m.applications {
		if app.Status == status {
			matched = append(matched, *app)
		}
	}
	return matched, len(matched), nil
}

func (m *memApplications) List(_ context.Context, limit, offset int) ([]application.Application, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []application.Application{}
	for _, app := range m.applications {
		all = append(all, *app)
	}
	return all, len(all), nil
}

type memDocuments struct {
	mu        sync.Mutex
	documents map[string]*application.Document
}

func (m *memDocuments) Create(_ context.Context, document *application.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *document
	m.documents[document.ID] = &clone
	return nil
}

func (m *memDocuments) FindByID(_ context.Context, id string) (*application.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if document, ok := m.documents[id]; ok {
		clone := *document
		clone.Content = nil
		return &clone, nil
	}
	return nil, apperr.NotFound("Document not found")
}

func (m *memDocuments) FindFile(_ context.Context, id string) (*application.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if document, ok := m.documents[id]; ok {
		clone := *document
		return &clone, nil
	}
	return nil, apperr.NotFound("Document not found")
}

func (m *memDocuments) ListByApplication(_ context.Context, applicationID string) ([]application.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	documents := []application.Document{}
	for _, document := range m.documents {
		if document.ApplicationID == applicationID {
			clone := *document
			clone.Content = nil
			documents = append(documents, clone)
		}
	}
	return documents, nil
}

func (m *memDocuments) CountByApplication(_ context.Context, applicationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, document := range m.documents {
		if document.ApplicationID == applicationID {
			count++
		}
	}
	return count, nil
}

func (m *memDocuments) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

// stubAccounts serves FindByID from the shared status map; the embedded
// interface covers the methods this service never calls.
type stubAccounts struct {
	auth.AccountRepository
	statuses map[string]auth.AccountStatus
}

func (s *stubAccounts) FindByID(_ context.Context, id string) (*auth.Account, error) {
	status, ok := s.statuses[id]
	if !ok {
		return nil, apperr.NotFound("Account not found")
	}
	return &auth.Account{
		ID:       id,
		Username: "analyst." + id[:8],
		Email:    id[:8] + "@example.com",
		FullName: "Test Analyst",
		Role:     sec.RoleAnalyst,
		Class:    sec.ClassAnalyst,
		Status:   status,
	}, nil
}

// stubSessions records revocations; everything else is unused here.
type stubSessions struct {
	auth.SessionRepository
	mu      sync.Mutex
	revoked []string
}

func (s *stubSessions) RevokeAllForSubject(_ context.Context, _ sec.PrincipalClass, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, subjectID)
	return nil
}

func (s *stubSessions) revokedFor(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.revoked {
		if id == subjectID {
			return true
		}
	}
	return false
}

// # Harness

type harness struct {
	service      *application.Service
	applications *memApplications
	documents    *memDocuments
	sessions     *stubSessions
	statuses     map[string]auth.AccountStatus
}

func newHarness() *harness {
	statuses := map[string]auth.AccountStatus{}
	h := &harness{
		applications: &memApplications{
			applications: map[string]*application.Application{},
			statuses:     statuses,
		},
		documents: &memDocuments{documents: map[string]*application.Document{}},
		sessions:  &stubSessions{},
		statuses:  statuses,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.service = application.NewService(
		h.applications,
		h.documents,
		&stubAccounts{statuses: statuses},
		h.sessions,
		mail.NewLogMailer(logger),
		logger,
	)
	return h
}

// registerAnalyst simulates the shell creation at analyst registration.
func (h *harness) registerAnalyst(t *testing.T) string {
	t.Helper()
	accountID := uuid.New().String()
	h.statuses[accountID] = auth.StatusPendingDocument
	require.NoError(t, h.service.CreateEmpty(context.Background(), accountID))
	return accountID
}

func (h *harness) upload(t *testing.T, accountID string) *application.Document {
	t.Helper()
	document, err := h.service.UploadDocument(context.Background(), accountID, application.UploadInput{
		Type:        application.DocumentPassport,
		Name:        "passport.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4 test"),
	})
	require.NoError(t, err)
	return document
}

// # Tests

/*
TestSubmit_RequiresDocument verifies that submission with zero attached
documents always fails.
*/
func TestSubmit_RequiresDocument(t *testing.T) {
	h := newHarness()
	accountID := h.registerAnalyst(t)

	_, err := h.service.Submit(context.Background(), accountID)
	require.Error(t, err)
	assert.Equal(t, "EMPTY_APPLICATION", apperr.As(err).Code)

	// Account status is untouched by the failed submission.
	assert.Equal(t, auth.StatusPendingDocument, h.statuses[accountID])
}

/*
TestSubmit_MovesBothStatuses verifies the lockstep pair: application
SUBMITTED and account PENDING_REVIEW flip together.
*/
func TestSubmit_MovesBothStatuses(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	accountID := h.registerAnalyst(t)
	h.upload(t, accountID)

	app, err := h.service.Submit(ctx, accountID)
	require.NoError(t, err)

	assert.Equal(t, application.StatusSubmitted, app.Status)
	require.NotNil(t, app.SubmittedAt)
	assert.Equal(t, auth.StatusPendingReview, h.statuses[accountID])
}

/*
TestOwnerEdits_LockAfterSubmission verifies that every owner mutation fails
once the application has left AWAITING_DOCUMENTS.
*/
func TestOwnerEdits_LockAfterSubmission(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	accountID := h.registerAnalyst(t)
	document := h.upload(t, accountID)

	_, err := h.service.Submit(ctx, accountID)
	require.NoError(t, err)

	_, err = h.service.SaveDetails(ctx, accountID, "Prior art research", "Acme IP")
	require.Error(t, err)
	assert.Equal(t, "APPLICATION_LOCKED", apperr.As(err).Code)

	_, err = h.service.UploadDocument(ctx, accountID, application.UploadInput{
		Type:        application.DocumentPANCard,
		Name:        "pan.png",
		ContentType: "image/png",
		Content:     []byte("png bytes"),
	})
	require.Error(t, err)
	assert.Equal(t, "APPLICATION_LOCKED", apperr.As(err).Code)

	err = h.service.DeleteDocument(ctx, accountID, document.ID)
	require.Error(t, err)
	assert.Equal(t, "APPLICATION_LOCKED", apperr.As(err).Code)

	_, err = h.service.Submit(ctx, accountID)
	require.Error(t, err)
	assert.Equal(t, "APPLICATION_LOCKED", apperr.As(err).Code)
}

/*
TestUploadDocument_Validation covers the content gate: type enum, media
type, emptiness, and the size cap.
*/
func TestUploadDocument_Validation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	accountID := h.registerAnalyst(t)

	tests := []struct {
		name  string
		input application.UploadInput
	}{
		{
			"unknown_document_type",
			application.UploadInput{Type: "SELFIE", Name: "x.png", ContentType: "image/png", Content: []byte("x")},
		},
		{
			"unsupported_media_type",
			application.UploadInput{Type: application.DocumentPassport, Name: "x.gif", ContentType: "image/gif", Content: []byte("x")},
		},
		{
			"empty_content",
			application.UploadInput{Type: application.DocumentPassport, Name: "x.pdf", ContentType: "application/pdf"},
		},
		{
			"oversized",
			application.UploadInput{Type: application.DocumentPassport, Name: "x.pdf", ContentType: "application/pdf",
				Content: bytes.Repeat([]byte("a"), 5*1024*1024+1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.UploadDocument(ctx, accountID, tt.input)
			require.Error(t, err)
			assert.Equal(t, 400, apperr.As(err).HTTPStatus)
		})
	}
}

/*
TestDetails_AutoReviewTransition verifies the read-triggered flip from
SUBMITTED to UNDER_REVIEW and its idempotence.
*/
func TestDetails_AutoReviewTransition(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	accountID := h.registerAnalyst(t)
	h.upload(t, accountID)

	submitted, err := h.service.Submit(ctx, accountID)
	require.NoError(t, err)

	opened, err := h.service.Details(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusUnderReview, opened.Status)
	assert.Len(t, opened.Documents, 1)

	// A second open changes nothing.
	again, err := h.service.Details(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusUnderReview, again.Status)

	// The account stays PENDING_REVIEW through the flip.
	assert.Equal(t, auth.StatusPendingReview, h.statuses[accountID])
}

/*
TestApprove covers the happy path and the guards: approving before
submission and approving twice.
*/
func TestApprove(t *testing.T) {
	t.Run("activates_account_in_lockstep", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		accountID := h.registerAnalyst(t)
		h.upload(t, accountID)
		submitted, err := h.service.Submit(ctx, accountID)
		require.NoError(t, err)

		approved, err := h.service.Approve(ctx, submitted.ID, "root", "Looks good")
		require.NoError(t, err)

		assert.Equal(t, application.StatusApproved, approved.Status)
		assert.Equal(t, "root", approved.ReviewedBy)
		require.NotNil(t, approved.ReviewedAt)
		assert.Equal(t, auth.StatusActive, h.statuses[accountID])
	})

	t.Run("not_yet_submitted", func(t *testing.T) {
		h := newHarness()
		accountID := h.registerAnalyst(t)
		app, err := h.service.MyApplication(context.Background(), accountID)
		require.NoError(t, err)

		_, err = h.service.Approve(context.Background(), app.ID, "root", "")
		require.Error(t, err)
		assert.Equal(t, "NOT_YET_SUBMITTED", apperr.As(err).Code)
	})

	t.Run("double_approve", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		accountID := h.registerAnalyst(t)
		h.upload(t, accountID)
		submitted, err := h.service.Submit(ctx, accountID)
		require.NoError(t, err)

		_, err = h.service.Approve(ctx, submitted.ID, "root", "")
		require.NoError(t, err)
		_, err = h.service.Approve(ctx, submitted.ID, "root", "")
		require.Error(t, err)
		assert.Equal(t, "ALREADY_APPROVED", apperr.As(err).Code)
	})
}

/*
TestReject covers the decline path, its guards, and the session purge of the
rejected analyst.
*/
func TestReject(t *testing.T) {
	t.Run("rejects_and_revokes_sessions", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		accountID := h.registerAnalyst(t)
		h.upload(t, accountID)
		submitted, err := h.service.Submit(ctx, accountID)
		require.NoError(t, err)

		rejected, err := h.service.Reject(ctx, submitted.ID, "root", "Documents illegible")
		require.NoError(t, err)

		assert.Equal(t, application.StatusRejected, rejected.Status)
		assert.Equal(t, "Documents illegible", rejected.AdminNote)
		assert.Equal(t, auth.StatusRejected, h.statuses[accountID])
		assert.True(t, h.sessions.revokedFor(accountID))
	})

	t.Run("cannot_reject_approved", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		accountID := h.registerAnalyst(t)
		h.upload(t, accountID)
		submitted, err := h.service.Submit(ctx, accountID)
		require.NoError(t, err)
		_, err = h.service.Approve(ctx, submitted.ID, "root", "")
		require.NoError(t, err)

		_, err = h.service.Reject(ctx, submitted.ID, "root", "Second thoughts")
		require.Error(t, err)
		assert.Equal(t, "CANNOT_REJECT_APPROVED", apperr.As(err).Code)
		assert.Equal(t, auth.StatusActive, h.statuses[accountID])
	})

	t.Run("not_yet_submitted", func(t *testing.T) {
		h := newHarness()
		accountID := h.registerAnalyst(t)
		app, err := h.service.MyApplication(context.Background(), accountID)
		require.NoError(t, err)

		_, err = h.service.Reject(context.Background(), app.ID, "root", "Too early")
		require.Error(t, err)
		assert.Equal(t, "NOT_YET_SUBMITTED", apperr.As(err).Code)
	})
}

/*
TestDeleteDocument_ForeignDocument verifies that an analyst cannot delete a
document attached to someone else's application.
*/
func TestDeleteDocument_ForeignDocument(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	ownerID := h.registerAnalyst(t)
	otherID := h.registerAnalyst(t)
	document := h.upload(t, ownerID)

	err := h.service.DeleteDocument(ctx, otherID, document.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.As(err).HTTPStatus)

	// The owner still can.
	require.NoError(t, h.service.DeleteDocument(ctx, ownerID, document.ID))
}
