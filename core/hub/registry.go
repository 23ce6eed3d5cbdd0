package hub

import (
	"sync"

	"Soundbay/model"
)

// Registry indexes live clients by user id and by role.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[*Client]struct{}
	byRole map[model.Role]map[*Client]struct{}
	count  int
}

// NewRegistry 创建连接索引
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[*Client]struct{}),
		byRole: make(map[model.Role]map[*Client]struct{}),
	}
}

// Insert 同时写入两个索引；一个用户可以有多个连接
func (r *Registry) Insert(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byUser[c.UserID] == nil {
		r.byUser[c.UserID] = make(map[*Client]struct{})
	}
	if _, ok := r.byUser[c.UserID][c]; ok {
		return
	}
	r.byUser[c.UserID][c] = struct{}{}

	if r.byRole[c.Role] == nil {
		r.byRole[c.Role] = make(map[*Client]struct{})
	}
	r.byRole[c.Role][c] = struct{}{}
	r.count++
}

// Remove reports whether c was registered.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.byUser, c.UserID)
	}
	if roleSet, ok := r.byRole[c.Role]; ok {
		delete(roleSet, c)
		if len(roleSet) == 0 {
			delete(r.byRole, c.Role)
		}
	}
	r.count--
	return true
}

// ForUser 返回副本，调用方可以在锁外遍历
func (r *Registry) ForUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.byUser[userID])
}

func (r *Registry) ForRole(role model.Role) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.byRole[role])
}

// All returns every registered client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, r.count)
	for _, set := range r.byUser {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Len 当前连接数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

func collect(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
