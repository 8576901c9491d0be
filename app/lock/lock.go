package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when another holder owns the lock.
var ErrLocked = errors.New("lock is held by another run")

// Locker guards named critical sections such as an ingestion run. Acquire
// never blocks waiting for the holder: it fails with ErrLocked instead.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

var _ Locker = (*LocalLocker)(nil)

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Acquire(ctx context.Context, name string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}
