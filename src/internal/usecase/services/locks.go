package services

import (
	"sort"
	"sync"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedLocks hands out one mutex per key. Entries are dropped once nobody
// holds or waits on them.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

func accountKey(id string) string { return "acct:" + id }

func transactionKey(id string) string { return "txn:" + id }

// Lock acquires every key in sorted order and returns the matching unlock.
// Duplicate keys are locked once.
func (l *keyedLocks) Lock(keys ...string) func() {
	sorted := uniqueSorted(keys)

	held := make([]*lockEntry, 0, len(sorted))
	for _, key := range sorted {
		l.mu.Lock()
		entry, ok := l.entries[key]
		if !ok {
			entry = &lockEntry{}
			l.entries[key] = entry
		}
		entry.refs++
		l.mu.Unlock()

		entry.mu.Lock()
		held = append(held, entry)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
			}
			l.mu.Lock()
			for i, key := range sorted {
				held[i].refs--
				if held[i].refs == 0 {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		})
	}
}

func (l *keyedLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
