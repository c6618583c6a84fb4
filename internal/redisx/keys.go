package redisx

import "time"

const (
	// Product listing cache: catalog:list:{category}:{search}:{page}:{limit}
	KeyCatalogList = "catalog:list:%s:%s:%d:%d"

	// Order status cache: order_status:{order_id} -> {"status":"...","payment_status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCatalogCache = 2 * time.Minute
	TTLStatusCache  = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
