// Package lock provides the per-key mutual exclusion used to serialize
// bookings of one teacher on one day.
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrNotAcquired is returned when a lock could not be obtained before the
// wait deadline.
var ErrNotAcquired = errors.New("lock: not acquired")

// Release frees a held lock. Calling it more than once is harmless.
type Release func()

// Locker acquires exclusive locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// AcquireAll locks every distinct key in sorted order so concurrent callers
// locking overlapping key sets cannot deadlock. The returned Release frees the
// keys in reverse order. On failure nothing stays locked.
func AcquireAll(ctx context.Context, locker Locker, keys ...string) (Release, error) {
	unique := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := unique[key]; ok {
			continue
		}
		unique[key] = struct{}{}
		ordered = append(ordered, key)
	}
	sort.Strings(ordered)

	releases := make([]Release, 0, len(ordered))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range ordered {
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}
