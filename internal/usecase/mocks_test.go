//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories (in-memory)
// =============================

// MockActionRepo is a small in-memory action catalog.
type MockActionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.CreditAction

	FindByNameFunc func(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error)
}

func NewMockActionRepo() *MockActionRepo {
	return &MockActionRepo{store: make(map[string]*model.CreditAction)}
}

var _ repository.CreditActionRepository = (*MockActionRepo)(nil)

func (m *MockActionRepo) Save(ctx context.Context, tx repository.Tx, a *model.CreditAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.Name] = &cp
	return nil
}

func (m *MockActionRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error) {
	if m.FindByNameFunc != nil {
		return m.FindByNameFunc(ctx, tx, name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockActionRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CreditAction, 0, len(m.store))
	for _, a := range m.store {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// MockDistributionRepo keys pools by (entity, area).
type MockDistributionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.CreditDistribution

	SaveFunc          func(ctx context.Context, tx repository.Tx, d *model.CreditDistribution) error
	FindForUpdateFunc func(ctx context.Context, tx repository.Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error)
}

func NewMockDistributionRepo() *MockDistributionRepo {
	return &MockDistributionRepo{store: make(map[string]*model.CreditDistribution)}
}

var _ repository.DistributionRepository = (*MockDistributionRepo)(nil)

func distKey(entityID string, area model.AppArea) string {
	return entityID + "|" + string(area)
}

func (m *MockDistributionRepo) Save(ctx context.Context, tx repository.Tx, d *model.CreditDistribution) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.store[distKey(d.EntityID, d.AppArea)] = &cp
	return nil
}

func (m *MockDistributionRepo) Find(ctx context.Context, tx repository.Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[distKey(entityID, area)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MockDistributionRepo) FindForUpdate(ctx context.Context, tx repository.Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error) {
	if m.FindForUpdateFunc != nil {
		return m.FindForUpdateFunc(ctx, tx, entityID, area)
	}
	return m.Find(ctx, tx, entityID, area)
}

// MockBalanceRepo holds one balance row per entity.
type MockBalanceRepo struct {
	mu    sync.RWMutex
	store map[string]*model.AvailableBalance

	SaveFunc          func(ctx context.Context, tx repository.Tx, b *model.AvailableBalance) error
	FindForUpdateFunc func(ctx context.Context, tx repository.Tx, entityID string) (*model.AvailableBalance, error)
}

func NewMockBalanceRepo() *MockBalanceRepo {
	return &MockBalanceRepo{store: make(map[string]*model.AvailableBalance)}
}

var _ repository.BalanceRepository = (*MockBalanceRepo)(nil)

func (m *MockBalanceRepo) Save(ctx context.Context, tx repository.Tx, b *model.AvailableBalance) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.store[b.EntityID] = &cp
	return nil
}

func (m *MockBalanceRepo) Find(ctx context.Context, tx repository.Tx, entityID string) (*model.AvailableBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.store[entityID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBalanceRepo) FindForUpdate(ctx context.Context, tx repository.Tx, entityID string) (*model.AvailableBalance, error) {
	if m.FindForUpdateFunc != nil {
		return m.FindForUpdateFunc(ctx, tx, entityID)
	}
	return m.Find(ctx, tx, entityID)
}

// MockHistoryRepo is an append-only slice of ledger entries.
type MockHistoryRepo struct {
	mu      sync.RWMutex
	Entries []*model.CreditHistory

	AppendFunc func(ctx context.Context, tx repository.Tx, h *model.CreditHistory) error
}

func NewMockHistoryRepo() *MockHistoryRepo {
	return &MockHistoryRepo{}
}

var _ repository.HistoryRepository = (*MockHistoryRepo)(nil)

func (m *MockHistoryRepo) Append(ctx context.Context, tx repository.Tx, h *model.CreditHistory) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockHistoryRepo) ListByEntity(ctx context.Context, tx repository.Tx, entityID string, limit int) ([]*model.CreditHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.CreditHistory
	for i := len(m.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.Entries[i].EntityID == entityID {
			cp := *m.Entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockHistoryRepo) SumByType(ctx context.Context, tx repository.Tx, entityID string) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var credited, debited int64
	for _, e := range m.Entries {
		if e.EntityID != entityID {
			continue
		}
		switch e.EntryType {
		case model.EntryCredit:
			credited += e.Amount
		case model.EntryDebit:
			debited += e.Amount
		}
	}
	return credited, debited, nil
}

func (m *MockHistoryRepo) CountByEntity(ctx context.Context, tx repository.Tx, entityID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.Entries {
		if e.EntityID == entityID {
			n++
		}
	}
	return n, nil
}

// MockPlanRepo stores plans by ID.
type MockPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SubscriptionPlan
}

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{store: make(map[string]*model.SubscriptionPlan)}
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.SubscriptionPlan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// MockSubscriptionRepo stores subscriptions by ID.
type MockSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.EntitySubscription
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: make(map[string]*model.EntitySubscription)}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.EntitySubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.EntitySubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindActiveByEntity(ctx context.Context, tx repository.Tx, entityID string, onDate time.Time) (*model.EntitySubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.EntityID == entityID && s.Active && s.CoversDate(onDate) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) ListByEntity(ctx context.Context, tx repository.Tx, entityID string) ([]*model.EntitySubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.EntitySubscription
	for _, s := range m.store {
		if s.EntityID == entityID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) FindExpired(ctx context.Context, tx repository.Tx, asOf time.Time) ([]*model.EntitySubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.EntitySubscription
	for _, s := range m.store {
		if s.Active && s.ExpiredAsOf(asOf) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, s := range m.store {
		if s.Active {
			out[s.PlanID]++
		}
	}
	return out, nil
}

// MockSubscriptionActionRepo keys usage rows by (subscription, action).
type MockSubscriptionActionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SubscriptionAction
}

func NewMockSubscriptionActionRepo() *MockSubscriptionActionRepo {
	return &MockSubscriptionActionRepo{store: make(map[string]*model.SubscriptionAction)}
}

var _ repository.SubscriptionActionRepository = (*MockSubscriptionActionRepo)(nil)

func saKey(subID, action string) string { return subID + "|" + action }

func (m *MockSubscriptionActionRepo) Save(ctx context.Context, tx repository.Tx, sa *model.SubscriptionAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sa
	m.store[saKey(sa.SubscriptionID, sa.ActionName)] = &cp
	return nil
}

func (m *MockSubscriptionActionRepo) Find(ctx context.Context, tx repository.Tx, subscriptionID, actionName string) (*model.SubscriptionAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sa, ok := m.store[saKey(subscriptionID, actionName)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sa
	return &cp, nil
}

func (m *MockSubscriptionActionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, subscriptionID, actionName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sa, ok := m.store[saKey(subscriptionID, actionName)]
	if !ok || sa.UsageCount >= sa.MaxCount {
		return domain.ErrOperationFailed
	}
	sa.UsageCount++
	return nil
}

// MockEntityRepo stores entities by ID.
type MockEntityRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Entity
}

func NewMockEntityRepo() *MockEntityRepo {
	return &MockEntityRepo{store: make(map[string]*model.Entity)}
}

var _ repository.EntityRepository = (*MockEntityRepo)(nil)

func (m *MockEntityRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[e.ID] = &cp
	return nil
}

func (m *MockEntityRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEntityRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.store {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockEntityRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// MockPermissionRepo stores capability rows in a set.
type MockPermissionRepo struct {
	mu    sync.RWMutex
	store map[string]bool
}

func NewMockPermissionRepo() *MockPermissionRepo {
	return &MockPermissionRepo{store: make(map[string]bool)}
}

var _ repository.PermissionRepository = (*MockPermissionRepo)(nil)

func permKey(entityID, userID string, cap model.Capability) string {
	return entityID + "|" + userID + "|" + string(cap)
}

func (m *MockPermissionRepo) Grant(ctx context.Context, tx repository.Tx, entityID, userID string, cap model.Capability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[permKey(entityID, userID, cap)] = true
	return nil
}

func (m *MockPermissionRepo) Revoke(ctx context.Context, tx repository.Tx, entityID, userID string, cap model.Capability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, permKey(entityID, userID, cap))
	return nil
}

func (m *MockPermissionRepo) Has(ctx context.Context, tx repository.Tx, entityID, userID string, cap model.Capability) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[permKey(entityID, userID, cap)], nil
}

func (m *MockPermissionRepo) ListByUser(ctx context.Context, tx repository.Tx, entityID, userID string) ([]model.Capability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Capability
	prefix := entityID + "|" + userID + "|"
	for k := range m.store {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, model.Capability(k[len(prefix):]))
		}
	}
	return out, nil
}

// MockTaxRepo stores rates by country.
type MockTaxRepo struct {
	mu    sync.RWMutex
	store map[string]*model.CountryTax
}

func NewMockTaxRepo() *MockTaxRepo {
	return &MockTaxRepo{store: make(map[string]*model.CountryTax)}
}

var _ repository.TaxRepository = (*MockTaxRepo)(nil)

func (m *MockTaxRepo) Save(ctx context.Context, tx repository.Tx, t *model.CountryTax) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.Country] = &cp
	return nil
}

func (m *MockTaxRepo) FindByCountry(ctx context.Context, tx repository.Tx, country string) (*model.CountryTax, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[country]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTaxRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CountryTax, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.CountryTax, 0, len(m.store))
	for _, t := range m.store {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// MockPaymentRepo stores payments by ID with an authority index.
type MockPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Payment

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
}

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment)}
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByAuthority(ctx context.Context, tx repository.Tx, authority string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Authority == authority {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if refID != nil {
		p.RefID = refID
	}
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockPaymentRepo) FindStalePending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) && len(out) < limit {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================
// Transaction manager, locker, adapters
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx executes the function immediately with NoTX by default. Assign
// WithTxFunc to observe or override transaction behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// MockLocker hands out leases from an in-memory map.
type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.ErrOn[key]; ok {
		return "", err
	}
	if _, taken := m.held[key]; taken {
		return "", domain.ErrPaymentInFlight
	}
	token := fmt.Sprintf("tok-%d", len(m.held)+1)
	m.held[key] = token
	return token, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// MockPaymentGateway records request/verify calls.
type MockPaymentGateway struct {
	mu  sync.Mutex
	seq int

	RequestPaymentFunc func(ctx context.Context, amountCents int64, currency, description, callbackURL string, meta map[string]interface{}) (string, string, error)
	VerifyPaymentFunc  func(ctx context.Context, authority string, expectedAmountCents int64) (string, error)
}

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) RequestPayment(ctx context.Context, amountCents int64, currency, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	if m.RequestPaymentFunc != nil {
		return m.RequestPaymentFunc(ctx, amountCents, currency, description, callbackURL, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	authority := fmt.Sprintf("auth-%d", m.seq)
	return authority, "https://pay.test/" + authority, nil
}

func (m *MockPaymentGateway) VerifyPayment(ctx context.Context, authority string, expectedAmountCents int64) (string, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, authority, expectedAmountCents)
	}
	return "ref-" + authority, nil
}

// MockObserver captures forwarded unknown capabilities.
type MockObserver struct {
	mu       sync.Mutex
	Received []string
}

func (m *MockObserver) UnknownCapability(ctx context.Context, entityID, userID, capability string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Received = append(m.Received, capability)
}
