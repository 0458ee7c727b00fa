// Package cache stores resolved DNS packets for reuse across requests.
package cache

import (
	"sort"
	"sync"

	"kitsunedns/dns"
)

// Cache is a lookaside store of resolved packets keyed by domain name.
// Entries never expire and are never evicted: record TTLs ride along in the
// stored packets but are not consulted. A single lock guards the map, and
// Fetch holds it across the miss callback, so all cache traffic waits
// behind whichever caller is currently resolving a miss.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*dns.Packet
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*dns.Packet)}
}

// Lookup returns a copy of the packet stored for name, if any.
func (c *Cache) Lookup(name string) (*dns.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	packet, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return packet.Clone(), true
}

// Insert stores a copy of packet under name, replacing any previous entry.
func (c *Cache) Insert(name string, packet *dns.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[name] = packet.Clone()
}

// Fetch returns the packet stored for name, or calls resolve to produce one
// and stores it. The lock is held for the whole call, upstream round trips
// included, so every concurrent fetch serializes behind an in-flight miss.
// The returned packet is the caller's own copy; the boolean reports whether
// it came from the cache. Nothing is stored when resolve fails.
func (c *Cache) Fetch(name string, resolve func() (*dns.Packet, error)) (*dns.Packet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if packet, ok := c.entries[name]; ok {
		return packet.Clone(), true, nil
	}

	packet, err := resolve()
	if err != nil {
		return nil, false, err
	}
	c.entries[name] = packet.Clone()

	return packet, false, nil
}

// Names returns the cached domain names in sorted order.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
