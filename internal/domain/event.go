package domain

import "time"

// RideEvent is one entry of the append-only ride transition log.
type RideEvent struct {
	Seq       int64
	RideID    string
	From      RideStatus // empty for creation
	To        RideStatus
	ActorRole Role
	ActorID   string
	Revision  int
	CreatedAt time.Time
}
