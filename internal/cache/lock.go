package cache

import "sync"

// entryLocks 串行化同一进程内对同一条目的写入/删除，跨进程不做协调。
type entryLocks struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (l *entryLocks) lock(digest string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*entryLock)
	}
	lock := l.locks[digest]
	if lock == nil {
		lock = &entryLock{}
		l.locks[digest] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, digest)
		}
		l.mu.Unlock()
	}
}
