package scan

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Lock coordinates exclusive scan cycles across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// AdvisoryLock implements Lock with a Postgres session advisory lock, so two
// scan workers pointed at the same database never process the same cycle.
type AdvisoryLock struct {
	db  *gorm.DB
	key int64
}

func NewAdvisoryLock(db *gorm.DB, key int64) (*AdvisoryLock, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required for lock")
	}
	if key == 0 {
		return nil, fmt.Errorf("lock key is required")
	}
	return &AdvisoryLock{db: db, key: key}, nil
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.WithContext(ctx).Raw("SELECT pg_try_advisory_lock(?)", l.key).Scan(&acquired).Error
	if err != nil {
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	return acquired, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	var released bool
	err := l.db.WithContext(ctx).Raw("SELECT pg_advisory_unlock(?)", l.key).Scan(&released).Error
	if err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}

// LocalLock is an in-process Lock for single-instance deployments and tests.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

func NewLocalLock() *LocalLock { return &LocalLock{} }

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
