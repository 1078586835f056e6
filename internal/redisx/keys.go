package redisx

import "time"

const (
	// Full order document cache: order:{order_id} -> Order JSON
	KeyOrder = "order:%s"

	// Dashboard summary cache, invalidated on any order write.
	KeyDashboard = "analytics:dashboard"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrder     = 5 * time.Minute
	TTLDashboard = 30 * time.Second
	TTLDedup     = 48 * time.Hour
)
