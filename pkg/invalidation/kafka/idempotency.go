package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// versionDedupe remembers the newest version applied per airfoil code.
type versionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

// claim is a version taken by shouldApply together with the one it replaced.
type claim struct {
	code    string
	version uint64
	prev    uint64
	hadPrev bool
}

func newVersionDedupe(size int) *versionDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, uint64](size)
	return &versionDedupe{lru: c}
}

// shouldApply reports whether v is newer than the last version seen for code
// and, if so, records it.
func (d *versionDedupe) shouldApply(code string, v uint64) (claim, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lru.Get(code)
	if ok && v <= last {
		return claim{}, false
	}
	d.lru.Add(code, v)
	return claim{code: code, version: v, prev: last, hadPrev: ok}, true
}

// forget rolls a failed apply back to the version recorded before it, so the
// same version can be retried and older ones stay stale.
func (d *versionDedupe) forget(c claim) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.lru.Peek(c.code); !ok || cur != c.version {
		return
	}
	if c.hadPrev {
		d.lru.Add(c.code, c.prev)
		return
	}
	d.lru.Remove(c.code)
}
