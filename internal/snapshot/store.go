// Package snapshot owns the persisted daily record and append-only history.
// Reads never fail: absent or unreadable state degrades to a placeholder so
// the serving path stays up regardless of storage health.
package snapshot

import "context"

// Store is the durable home of the daily record and the history archive.
//
// LoadDaily and LoadHistory swallow storage faults and answer a usable
// default; write methods report faults so the caller can log them, but a
// failed write must never take down the recording cycle.
type Store interface {
	LoadDaily(ctx context.Context) Daily
	SaveDaily(ctx context.Context, d Daily) error
	LoadHistory(ctx context.Context) History
	AppendHistory(ctx context.Context, date string, p Period, r Reading) error
	Close()
}
