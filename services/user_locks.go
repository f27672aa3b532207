package services

import (
	"context"
	"sync"
)

// UserLocks hands out one lock per user id. Entries are reference counted
// and dropped once the last holder or waiter leaves, so the map only holds
// users with a claim in flight.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock is a one-slot semaphore so waiters can give up on ctx.
type userLock struct {
	slot chan struct{}
	refs int
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until the caller owns userID or ctx is done. On success it
// returns the release func.
func (l *UserLocks) Lock(ctx context.Context, userID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{slot: make(chan struct{}, 1)}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		l.drop(userID, entry)
		return nil, ctx.Err()
	}

	return func() {
		<-entry.slot
		l.drop(userID, entry)
	}, nil
}

func (l *UserLocks) drop(userID string, entry *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, userID)
	}
}

// Len reports how many users currently hold or wait for a lock.
func (l *UserLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
