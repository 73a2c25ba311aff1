// Copyright (c) 2026 IP Platform. All rights reserved.

package auth_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/mail"
	"github.com/ipplatform/backend/internal/platform/sec"
)

// In-memory doubles for the repository contracts. Behavior mirrors the
// Postgres implementations, including the CAS semantics of rotation and
// reset-token consumption.

// # Account Repository

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*auth.Account{}}
}

func (m *memAccounts) Create(_ context.Context, account *auth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return apperr.Conflict("Resource already exists")
		}
	}
	clone := *account
	clone.CreatedAt = time.Now()
	m.accounts[account.ID] = &clone
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, ok := m.accounts[id]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, apperr.NotFound("Account not found")
}

func (m *memAccounts) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	return m.findBy(func(account *auth.Account) bool { return account.Username == username })
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	return m.findBy(func(account *auth.Account) bool { return account.Email == email })
}

func (m *memAccounts) FindByGoogleSubject(_ context.Context, subject string) (*auth.Account, error) {
	return m.findBy(func(account *auth.Account) bool {
		return account.GoogleSubject != "" && account.GoogleSubject == subject
	})
}

func (m *memAccounts) findBy(match func(*auth.Account) bool) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if match(account) {
			clone := *account
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Account not found")
}

func (m *memAccounts) UpdatePassword(_ context.Context, accountID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return apperr.NotFound("Account not found")
	}
	account.PasswordHash = newHash
	return nil
}

func (m *memAccounts) UpdateStatus(_ context.Context, accountID string, status auth.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return apperr.NotFound("Account not found")
	}
	account.Status = status
	return nil
}

func (m *memAccounts) LinkGoogleSubject(_ context.Context, accountID, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return apperr.NotFound("Account not found")
	}
	account.GoogleSubject = subject
	return nil
}

func (m *memAccounts) List(_ context.Context, limit, offset int) ([]auth.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]auth.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		all = append(all, *account)
	}
	total := len(all)
	if offset >= total {
		return []auth.Account{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// # Admin Repository

type memAdmins struct {
	mu     sync.Mutex
	admins map[string]*auth.Admin
}

func newMemAdmins() *memAdmins {
	return &memAdmins{admins: map[string]*auth.Admin{}}
}

func (m *memAdmins) Create(_ context.Context, admin *auth.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if existing.Username == admin.Username || existing.Email == admin.Email {
			return apperr.Conflict("Resource already exists")
		}
	}
	clone := *admin
	m.admins[admin.ID] = &clone
	return nil
}

func (m *memAdmins) FindByID(_ context.Context, id string) (*auth.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if admin, ok := m.admins[id]; ok {
		clone := *admin
		return &clone, nil
	}
	return nil, apperr.NotFound("Admin not found")
}

func (m *memAdmins) FindByUsername(_ context.Context, username string) (*auth.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, admin := range m.admins {
		if admin.Username == username {
			clone := *admin
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Admin not found")
}

func (m *memAdmins) FindByEmail(_ context.Context, email string) (*auth.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, admin := range m.admins {
		if admin.Email == email {
			clone := *admin
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Admin not found")
}

// # Session Repository

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*auth.RefreshSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*auth.RefreshSession{}}
}

func (m *memSessions) Create(_ context.Context, session *auth.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *session
	clone.CreatedAt = time.Now()
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memSessions) FindByTokenHash(_ context.Context, tokenHash string) (*auth.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.TokenHash == tokenHash {
			clone := *session
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Session not found")
}

func (m *memSessions) ConsumeAndRotate(_ context.Context, currentID string, replacement *auth.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[currentID]
	if !ok || current.Revoked {
		return auth.ErrSessionConsumed
	}
	current.Revoked = true
	clone := *replacement
	m.sessions[replacement.ID] = &clone
	return nil
}

func (m *memSessions) Revoke(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[sessionID]; ok {
		session.Revoked = true
	}
	return nil
}

func (m *memSessions) RevokeAllForSubject(_ context.Context, class sec.PrincipalClass, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.SubjectClass == class && session.SubjectID == subjectID {
			session.Revoked = true
		}
	}
	return nil
}

func (m *memSessions) DeleteExpiredOrRevoked(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, session := range m.sessions {
		if session.Revoked || time.Now().After(session.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// liveCount reports how many sessions of the subject are still usable.
func (m *memSessions) liveCount(class sec.PrincipalClass, subjectID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, session := range m.sessions {
		if session.SubjectClass == class && session.SubjectID == subjectID && session.Valid() {
			count++
		}
	}
	return count
}

// # Reset Token Repository

type memResetTokens struct {
	mu     sync.Mutex
	tokens map[string]*auth.PasswordResetToken
}

func newMemResetTokens() *memResetTokens {
	return &memResetTokens{tokens: map[string]*auth.PasswordResetToken{}}
}

func (m *memResetTokens) Create(_ context.Context, token *auth.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *token
	m.tokens[token.ID] = &clone
	return nil
}

func (m *memResetTokens) FindByTokenHash(_ context.Context, tokenHash string) (*auth.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.TokenHash == tokenHash {
			clone := *token
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Reset token not found")
}

func (m *memResetTokens) Consume(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenID]
	if !ok || token.Used {
		return auth.ErrResetTokenConsumed
	}
	token.Used = true
	return nil
}

func (m *memResetTokens) InvalidateForAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.AccountID == accountID {
			token.Used = true
		}
	}
	return nil
}

func (m *memResetTokens) DeleteExpiredOrUsed(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, token := range m.tokens {
		if token.Used || time.Now().After(token.ExpiresAt) {
			delete(m.tokens, id)
			removed++
		}
	}
	return removed, nil
}

// usableCount reports how many tokens are still consumable for the account.
func (m *memResetTokens) usableCount(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, token := range m.tokens {
		if token.AccountID == accountID && token.Valid() {
			count++
		}
	}
	return count
}

// # Collaborator Doubles

// fakeIssuer mints predictable, unique token strings.
type fakeIssuer struct {
	mu      sync.Mutex
	counter int
}

func (issuer *fakeIssuer) next(prefix, principalID string) string {
	issuer.mu.Lock()
	defer issuer.mu.Unlock()
	issuer.counter++
	return fmt.Sprintf("%s-%s-%d", prefix, principalID, issuer.counter)
}

func (issuer *fakeIssuer) IssueAccessToken(principalID, _ string, _ sec.Role, _ sec.PrincipalClass, _ time.Duration) (string, error) {
	return issuer.next("access", principalID), nil
}

func (issuer *fakeIssuer) IssueRefreshToken(principalID, _ string, _ sec.PrincipalClass, _ time.Duration) (string, error) {
	return issuer.next("refresh", principalID), nil
}

// fakeApps records which accounts got an application shell created.
type fakeApps struct {
	mu         sync.Mutex
	accountIDs []string
}

func (apps *fakeApps) CreateEmpty(_ context.Context, accountID string) error {
	apps.mu.Lock()
	defer apps.mu.Unlock()
	apps.accountIDs = append(apps.accountIDs, accountID)
	return nil
}

func (apps *fakeApps) created(accountID string) bool {
	apps.mu.Lock()
	defer apps.mu.Unlock()
	for _, id := range apps.accountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// fakeGoogle returns a fixed identity, or an error when unset.
type fakeGoogle struct {
	identity *sec.GoogleIdentity
}

func (google *fakeGoogle) Verify(_ context.Context, _ string) (*sec.GoogleIdentity, error) {
	if google.identity == nil {
		return nil, fmt.Errorf("id token rejected")
	}
	return google.identity, nil
}

// # Harness

type harness struct {
	service     *auth.Service
	accounts    *memAccounts
	admins      *memAdmins
	sessions    *memSessions
	resetTokens *memResetTokens
	apps        *fakeApps
	google      *fakeGoogle
}

func newHarness() *harness {
	h := &harness{
		accounts:    newMemAccounts(),
		admins:      newMemAdmins(),
		sessions:    newMemSessions(),
		resetTokens: newMemResetTokens(),
		apps:        &fakeApps{},
		google:      &fakeGoogle{},
	}
	h.service = auth.NewService(
		h.accounts,
		h.admins,
		h.sessions,
		h.resetTokens,
		h.apps,
		&fakeIssuer{},
		h.google,
		mail.NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil))),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		auth.Options{FrontendURL: "https://app.ipplatform.com"},
	)
	return h
}
