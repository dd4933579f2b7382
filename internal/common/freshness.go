package common

import "time"

// IsFresh reports whether data fetched at fetchedAt is still valid at now for the given ttl.
// A zero fetchedAt or a non-positive ttl is never fresh. Timestamps in the future
// (clock skew) are treated as fresh only while within ttl of now.
func IsFresh(now, fetchedAt time.Time, ttl time.Duration) bool {
	if fetchedAt.IsZero() || ttl <= 0 {
		return false
	}
	age := now.Sub(fetchedAt)
	if age < 0 {
		age = -age
	}
	return age < ttl
}
