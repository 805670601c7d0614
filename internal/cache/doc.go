// Package cache provides a byte-budgeted LRU for decoded dataset chunks and
// raw blob blocks.
//
// Memory held by the cache is accounted against a resource.Controller when
// one is supplied, so a container's chunk working set shares one limit with
// everything else the controller governs.
package cache
