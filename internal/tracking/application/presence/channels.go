package presence

import (
	"sort"
	"sync"
)

// Channels - группы рассылки по orderId.
// Канал создается при первом Join и удаляется, когда пустеет.
type Channels struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // key → conns
	byConn  map[string]map[string]struct{} // conn → keys
}

func NewChannels() *Channels {
	return &Channels{
		members: make(map[string]map[string]struct{}),
		byConn:  make(map[string]map[string]struct{}),
	}
}

// Join идемпотентен
func (c *Channels) Join(key, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.members[key]
	if !ok {
		m = make(map[string]struct{})
		c.members[key] = m
	}
	m[connID] = struct{}{}

	keys, ok := c.byConn[connID]
	if !ok {
		keys = make(map[string]struct{})
		c.byConn[connID] = keys
	}
	keys[key] = struct{}{}
}

// Leave идемпотентен
func (c *Channels) Leave(key, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leave(key, connID)
}

// leave вызывается под c.mu
func (c *Channels) leave(key, connID string) {
	if m, ok := c.members[key]; ok {
		delete(m, connID)
		if len(m) == 0 {
			delete(c.members, key)
		}
	}
	if keys, ok := c.byConn[connID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byConn, connID)
		}
	}
}

// LeaveAll выводит соединение из всех каналов и возвращает их ключи
func (c *Channels) LeaveAll(connID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := sortedKeys(c.byConn[connID])
	for _, key := range keys {
		c.leave(key, connID)
	}
	return keys
}

// Members - копия состава канала на момент вызова
func (c *Channels) Members(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.members[key])
}

// ChannelsOf - каналы, в которых состоит соединение
func (c *Channels) ChannelsOf(connID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.byConn[connID])
}

// Sizes - размер каждого непустого канала
func (c *Channels) Sizes() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int, len(c.members))
	for key, m := range c.members {
		out[key] = len(m)
	}
	return out
}

// Len - число непустых каналов
func (c *Channels) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
