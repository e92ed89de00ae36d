package telemetry

// Span attribute keys.
const (
	AttrSource      = "trailmap.source"
	AttrRoutes      = "trailmap.routes"
	AttrItemErrors  = "trailmap.item_errors"
	AttrCacheResult = "trailmap.cache"
)
