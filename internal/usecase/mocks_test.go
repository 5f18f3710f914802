package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/zqshi/thinkcraft-auth/internal/core/domain"
	"github.com/zqshi/thinkcraft-auth/internal/core/port"
	"github.com/zqshi/thinkcraft-auth/internal/infra/security"
	"github.com/zqshi/thinkcraft-auth/internal/repository"
)

type memAccounts struct {
	mu        sync.Mutex
	byID      map[string]*domain.Account
	createErr error
	saveErr   error
	saves     int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]*domain.Account)}
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *memAccounts) FindByPhone(_ context.Context, phone domain.Phone) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.byID {
		if account.Phone == phone && account.DeletedAt == nil {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if existing.Phone == account.Phone && existing.DeletedAt == nil {
			return repository.ErrDuplicate
		}
	}
	copied := *account
	m.byID[account.ID] = &copied
	return nil
}

func (m *memAccounts) Save(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.byID[account.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *account
	m.byID[account.ID] = &copied
	m.saves++
	return nil
}

type memEntry struct {
	value   string
	expires time.Time
	hasTTL  bool
}

type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{entries: make(map[string]memEntry), now: now}
}

func (m *memStore) live(key string) (memEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if entry.hasTTL && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return memEntry{}, false
	}
	return entry, true
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl), hasTTL: ttl > 0}
	return nil
}

func (m *memStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl), hasTTL: ttl > 0}
	return true, nil
}

func (m *memStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live(key)
	if !ok {
		m.entries[key] = memEntry{value: "1", expires: m.now().Add(ttl), hasTTL: ttl > 0}
		return 1, nil
	}
	count, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		return 0, err
	}
	count++
	entry.value = strconv.FormatInt(count, 10)
	m.entries[key] = entry
	return count, nil
}

func (m *memStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live(key)
	if !ok || !entry.hasTTL {
		return 0, nil
	}
	return entry.expires.Sub(m.now()), nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

type sentCode struct {
	phone   domain.Phone
	code    string
	purpose string
}

type stubSender struct {
	sent []sentCode
	err  error
}

func (s *stubSender) SendCode(_ context.Context, phone domain.Phone, code, purpose string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentCode{phone: phone, code: code, purpose: purpose})
	return nil
}

type verifyCall struct {
	phone   string
	purpose string
	code    string
}

type stubVerifier struct {
	err   error
	calls []verifyCall
}

func (s *stubVerifier) VerifyCode(_ context.Context, phone, purpose, code string) error {
	s.calls = append(s.calls, verifyCall{phone: phone, purpose: purpose, code: code})
	return s.err
}

type fakeTokens struct {
	issued   int
	access   map[string]*port.TokenClaims
	refresh  map[string]*port.TokenClaims
	issueErr error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		access:  make(map[string]*port.TokenClaims),
		refresh: make(map[string]*port.TokenClaims),
	}
}

func (f *fakeTokens) IssuePair(accountID, phone string) (*port.TokenPair, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	f.issued++
	access := fmt.Sprintf("access-%d", f.issued)
	refresh := fmt.Sprintf("refresh-%d", f.issued)
	f.access[access] = &port.TokenClaims{AccountID: accountID, Phone: phone, TokenID: access}
	f.refresh[refresh] = &port.TokenClaims{AccountID: accountID, Phone: phone, TokenID: refresh}
	return &port.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  time.Hour,
		RefreshExpiresIn: 7 * 24 * time.Hour,
	}, nil
}

func (f *fakeTokens) VerifyAccessToken(token string) (*port.TokenClaims, error) {
	if claims, ok := f.access[token]; ok {
		return claims, nil
	}
	return nil, security.ErrTokenInvalid
}

func (f *fakeTokens) VerifyRefreshToken(token string) (*port.TokenClaims, error) {
	if claims, ok := f.refresh[token]; ok {
		return claims, nil
	}
	return nil, security.ErrTokenInvalid
}

type publishedEvent struct {
	eventType string
	payload   any
}

type capturingPublisher struct {
	events []publishedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.events = append(p.events, publishedEvent{eventType: eventType, payload: payload})
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) countOf(eventType string) int {
	n := 0
	for _, event := range p.events {
		if event.eventType == eventType {
			n++
		}
	}
	return n
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}
