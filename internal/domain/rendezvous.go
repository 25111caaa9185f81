package domain

import (
	"context"
	"strconv"
	"time"
)

// Rendezvous lets a request wait for a named signal raised elsewhere.
type Rendezvous interface {
	// Wait blocks until name is notified, timeout elapses or ctx is done.
	// It reports true only when notified.
	Wait(ctx context.Context, name string, timeout time.Duration) bool
	// Notify wakes every current waiter on name. Later waiters are not affected.
	Notify(name string)
}

// RsvpSessionRendezvousKey names the signal raised when a session is paid.
func RsvpSessionRendezvousKey(sessionID int64) string {
	return "rsvp_session:" + strconv.FormatInt(sessionID, 10)
}
