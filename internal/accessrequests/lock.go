package accessrequests

import "sync"

// pairLocks serializes mutations per (user, barrier) pair. Striping keeps the
// lock table fixed-size; two distinct pairs may share a stripe, which only
// costs contention, never correctness.
type pairLocks struct {
	stripes [64]sync.Mutex
}

func (l *pairLocks) of(userID, barrierID uint64) *sync.Mutex {
	idx := (userID*1000003 + barrierID) % uint64(len(l.stripes))
	return &l.stripes[idx]
}
