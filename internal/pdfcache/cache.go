// Package pdfcache 缓存已生成的 PDF 字节，避免公开下载接口重复渲染。
// TTL + 容量双重淘汰，不是 LRU：只按 createdAt 从旧到新驱逐。
package pdfcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Entry 是一份缓存的 PDF。
type Entry struct {
	Buffer    []byte
	FileName  string
	CreatedAt time.Time
}

// Cache 是进程生命周期的 PDF 缓存，作为显式依赖注入到 handler，
// 不做包级单例。并发安全：所有读写都在互斥锁内。
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int

	// now 可替换，测试用。
	now func() time.Time

	onEvict func(reason string)
}

// New 创建缓存。ttl<=0 回退到 5 分钟，maxEntries<=0 回退到 50。
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 50
	}
	return &Cache{
		entries:    make(map[string]Entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetClock 替换时间源（仅测试使用）。
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// OnEvict 注册驱逐回调，reason 为 "ttl" 或 "capacity"（指标用）。
func (c *Cache) OnEvict(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// MakeKey 对 (resumeID, templateID, customization) 的 JSON 序列化取
// SHA-256 摘要的前 16 个十六进制字符。截断后的碰撞概率对缓存场景可以忽略，
// 这不是安全边界。
func MakeKey(resumeID uint, templateID string, customization any) string {
	raw, err := json.Marshal(struct {
		ResumeID      uint   `json:"resume_id"`
		TemplateID    string `json:"template_id"`
		Customization any    `json:"customization"`
	}{resumeID, templateID, customization})
	if err != nil {
		raw = []byte(templateID)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// Get 在每次读之前先做一轮清理；过期条目即使尚未被驱逐也不会命中。
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set 写入一份新生成的 PDF，随后立即按容量清理。
func (c *Cache) Set(key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}
	c.entries[key] = entry
	c.pruneLocked()
}

// Prune 手动触发一轮清理。
func (c *Cache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
}

// Len 返回当前条目数。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// pruneLocked 先删过期条目，仍超容量则按 createdAt 从旧到新删到上限。
func (c *Cache) pruneLocked() {
	cutoff := c.now().Add(-c.ttl)
	for key, entry := range c.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(c.entries, key)
			c.evicted("ttl")
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyed struct {
		key       string
		createdAt time.Time
	}
	ordered := make([]keyed, 0, len(c.entries))
	for key, entry := range c.entries {
		ordered = append(ordered, keyed{key, entry.CreatedAt})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].createdAt.Before(ordered[j].createdAt)
	})
	for _, k := range ordered[:len(c.entries)-c.maxEntries] {
		delete(c.entries, k.key)
		c.evicted("capacity")
	}
}

func (c *Cache) evicted(reason string) {
	if c.onEvict != nil {
		c.onEvict(reason)
	}
}
