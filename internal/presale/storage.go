package presale

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a purchase with the given ID is not found.
var ErrNotFound = errors.New("purchase not found")

// ErrEmptyID is returned when trying to store a purchase with an empty ID.
var ErrEmptyID = errors.New("empty purchase ID")

// Storage is the main interface for our purchase record layer.
type Storage interface {
	Set(purchase *Purchase) error
	Read(id string) (*Purchase, error)
	GetAll() ([]*Purchase, error)
}

// LocalStorage provides an in-memory implementation for storing purchases.
// It keeps its own copies; callers never share records with the store.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[string]*Purchase
}

// NewLocalStorage instantiates a new LocalStorage with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Purchase{},
	}
}

// Returns ErrEmptyID if the purchase has an empty ID.
func (l *LocalStorage) Set(purchase *Purchase) error {
	if purchase.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[purchase.ID] = purchase.Clone()
	return nil
}

// Read retrieves a purchase by ID.
// Returns ErrNotFound if the purchase is not found.
func (l *LocalStorage) Read(id string) (*Purchase, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// GetAll retrieves all purchases, oldest first.
func (l *LocalStorage) GetAll() ([]*Purchase, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	purchases := make([]*Purchase, 0, len(l.m))
	for _, p := range l.m {
		purchases = append(purchases, p.Clone())
	}
	sort.SliceStable(purchases, func(i, j int) bool {
		return purchases[i].Seq < purchases[j].Seq
	})
	return purchases, nil
}
