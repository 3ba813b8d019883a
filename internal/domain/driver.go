package domain

import "time"

// DriverAvailability is a driver's presence as seen by the availability feed.
type DriverAvailability struct {
	DriverID      string
	Online        bool
	HasPosition   bool
	Lat           float64
	Lng           float64
	LastHeartbeat time.Time
}

// IsFresh reports whether the driver is online and heartbeated within ttl.
func (d *DriverAvailability) IsFresh(now time.Time, ttl time.Duration) bool {
	if d == nil || !d.Online {
		return false
	}
	return now.Sub(d.LastHeartbeat) <= ttl
}
