// Package cache provides a generic LRU cache with deferred eviction.
//
// Entries are only evicted by an explicit Trim, so values handed out
// during a frame stay alive until the frame boundary:
//
//	c := cache.New[uint64, gpucore.DescriptorSetID](256, func(_ uint64, ds gpucore.DescriptorSetID) {
//		dev.DestroyDescriptorSet(ds)
//	})
//	ds, err := c.GetOrCreate(key, create)
//	// ... at frame end
//	c.Trim()
//
// # Thread Safety
//
// Cache is safe for concurrent use. It should not be copied after
// creation (it contains a mutex).
package cache
