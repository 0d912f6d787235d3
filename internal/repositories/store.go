package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/database"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record is absent or trashed.
	ErrNotFound = errors.New("record not found")
	// ErrStockConflict is returned when a conditional stock decrement
	// matched no row because the tracked stock was too low.
	ErrStockConflict = errors.New("insufficient stock for conditional update")
	// ErrDuplicate is returned when an insert hits a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the data-access handle passed to every service. Repositories
// obtained from a Store returned by Transaction share that transaction.
type Store interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is the GORM implementation of Store.
type GORMStore struct {
	db     *gorm.DB
	txOpts database.TxOptions
	inTx   bool
}

// NewGORMStore creates a new GORMStore.
func NewGORMStore(db *gorm.DB, txOpts database.TxOptions) *GORMStore {
	return &GORMStore{db: db, txOpts: txOpts}
}

func (s *GORMStore) Products() ProductRepository { return NewGORMProductRepository(s.db) }
func (s *GORMStore) Carts() CartRepository       { return NewGORMCartRepository(s.db) }
func (s *GORMStore) Orders() OrderRepository     { return NewGORMOrderRepository(s.db) }
func (s *GORMStore) Users() UserRepository       { return NewGORMUserRepository(s.db) }

// Transaction runs fn in a database transaction, retrying on serialization
// failures and deadlocks. Calls on a store that is already transactional
// join the outer transaction.
func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return database.WithRetry(ctx, s.db, s.txOpts, func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx, txOpts: s.txOpts, inTx: true})
	})
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
