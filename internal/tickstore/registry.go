package tickstore

import "sync"

// Process-wide write-lock registry keyed by archive file path, grown on
// first access. The lock serializes the bulk-insert critical section of a
// save; reads go unlocked and may observe a coverage record mid-update,
// which is acceptable because coverage is advisory for gap detection.
var (
	registryMu sync.Mutex
	venueLocks = make(map[string]*sync.Mutex)
)

func lockFor(path string) *sync.Mutex {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := venueLocks[path]; ok {
		return l
	}
	l := &sync.Mutex{}
	venueLocks[path] = l
	return l
}
