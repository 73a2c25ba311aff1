// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package application implements the analyst review workflow: the application
record created at analyst registration, its identity documents, and the
admin review that activates (or rejects) the account.

# State Machine

	AWAITING_DOCUMENTS -> SUBMITTED     [analyst submits with >=1 document]
	SUBMITTED          -> UNDER_REVIEW  [admin opens the application]
	UNDER_REVIEW       -> APPROVED      [admin approves]
	UNDER_REVIEW       -> REJECTED      [admin rejects]

Application status and the owning account's status move in lockstep inside
one transaction; the two are never updated independently.
*/
package application

import "time"

// # Application Status

// Status tracks where an application sits in the review pipeline.
type Status string

const (
	// Freshly registered analyst, nothing submitted yet. The only state in
	// which the owner may still edit the application.
	StatusAwaitingDocuments Status = "AWAITING_DOCUMENTS"

	// Submitted and queued for review.
	StatusSubmitted Status = "SUBMITTED"

	// An admin has opened the application.
	StatusUnderReview Status = "UNDER_REVIEW"

	// Terminal: the owning account is ACTIVE.
	StatusApproved Status = "APPROVED"

	// Terminal: the owning account is REJECTED.
	StatusRejected Status = "REJECTED"
)

// Editable reports whether the owning analyst may still modify the
// application (details, uploads, deletions).
func (s Status) Editable() bool {
	return s == StatusAwaitingDocuments
}

// # Document Types

// DocumentType enumerates the accepted identity document categories.
type DocumentType string

const (
	DocumentAadhaarCard      DocumentType = "AADHAAR_CARD"
	DocumentPANCard          DocumentType = "PAN_CARD"
	DocumentPassport         DocumentType = "PASSPORT"
	DocumentVoterID          DocumentType = "VOTER_ID"
	DocumentBirthCertificate DocumentType = "BIRTH_CERTIFICATE"
	DocumentDrivingLicense   DocumentType = "DRIVING_LICENSE"
	DocumentOther            DocumentType = "OTHER"
)

// Valid reports whether the type is one of the accepted categories.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentAadhaarCard, DocumentPANCard, DocumentPassport,
		DocumentVoterID, DocumentBirthCertificate, DocumentDrivingLicense,
		DocumentOther:
		return true
	}
	return false
}

// # Entities

// Application is the reviewable record of an analyst registration, distinct
// from the account itself.
type Application struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	Status       Status     `json:"status"`
	Purpose      string     `json:"purpose"`
	Organization string     `json:"organization"`
	AdminNote    string     `json:"admin_note,omitempty"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Documents holds metadata only; content bytes are fetched separately.
	Documents []Document `json:"documents,omitempty"`
}

// Document is an identity document attached to an application. Content is
// stored inline in Postgres; it never serializes into JSON listings.
type Document struct {
	ID            string       `json:"id"`
	ApplicationID string       `json:"application_id"`
	Type          DocumentType `json:"type"`
	Name          string       `json:"name"`
	ContentType   string       `json:"content_type"`
	Size          int64        `json:"size"`
	Content       []byte       `json:"-"`
	UploadedAt    time.Time    `json:"uploaded_at"`
}

// # Field Identifiers

// Canonical JSON field names used in validation and payloads.
const (
	FieldPurpose      = "purpose"
	FieldOrganization = "organization"
	FieldType         = "type"
	FieldFile         = "file"
	FieldNote         = "note"
	FieldReason       = "reason"
)
