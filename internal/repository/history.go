package repository

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/safishield/internal/domain"
	"github.com/saturnino-fabrica-de-software/safishield/internal/store"
)

const (
	TransactionLimit = 100
	AlertLimit       = 50
)

// cappedList is a newest-first JSON list under one key
type cappedList[T any] struct {
	mu    sync.Mutex
	kv    store.KV
	key   string
	limit int
}

func (l *cappedList[T]) list(ctx context.Context, userID string) ([]T, error) {
	items, _, err := store.GetJSON[[]T](ctx, l.kv, store.UserKey(userID, l.key))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (l *cappedList[T]) prepend(ctx context.Context, userID string, item T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.list(ctx, userID)
	if err != nil {
		return err
	}
	items = append([]T{item}, items...)
	if len(items) > l.limit {
		items = items[:l.limit]
	}
	return store.SetJSON(ctx, l.kv, store.UserKey(userID, l.key), items)
}

// TransactionRepository keeps the most recent transactions, newest first
type TransactionRepository struct {
	list *cappedList[domain.UserTransaction]
}

var _ TransactionRepositoryInterface = (*TransactionRepository)(nil)

// NewTransactionRepository keeps the most recent TransactionLimit transactions
func NewTransactionRepository(kv store.KV) *TransactionRepository {
	return &TransactionRepository{list: &cappedList[domain.UserTransaction]{kv: kv, key: store.KeyTransactions, limit: TransactionLimit}}
}

func (r *TransactionRepository) List(ctx context.Context, userID string) ([]domain.UserTransaction, error) {
	return r.list.list(ctx, userID)
}

func (r *TransactionRepository) Add(ctx context.Context, userID string, tx domain.UserTransaction) error {
	return r.list.prepend(ctx, userID, tx)
}

// AlertRepository keeps alerts raised for blocked transactions
type AlertRepository struct {
	list *cappedList[domain.SecurityAlert]
}

var _ AlertRepositoryInterface = (*AlertRepository)(nil)

// NewAlertRepository keeps the most recent AlertLimit alerts
func NewAlertRepository(kv store.KV) *AlertRepository {
	return &AlertRepository{list: &cappedList[domain.SecurityAlert]{kv: kv, key: store.KeyAlerts, limit: AlertLimit}}
}

func (r *AlertRepository) List(ctx context.Context, userID string) ([]domain.SecurityAlert, error) {
	return r.list.list(ctx, userID)
}

func (r *AlertRepository) Add(ctx context.Context, userID string, a domain.SecurityAlert) error {
	return r.list.prepend(ctx, userID, a)
}
