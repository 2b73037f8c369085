package table

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultMaxTables = 10000
	defaultIdleTTL   = 30 * time.Minute
)

// Manager 管理进程内的牌桌
// 长时间没有访问的牌桌会被淘汰并关闭
type Manager struct {
	tables *expirable.LRU[string, *Table]
	opts   []Option // 每张牌桌的默认选项
}

// NewManager 创建牌桌管理器，size <= 0 或 ttl <= 0 时使用默认值
func NewManager(size int, ttl time.Duration, opts ...Option) *Manager {
	if size <= 0 {
		size = defaultMaxTables
	}
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}

	m := &Manager{opts: opts}
	m.tables = expirable.NewLRU[string, *Table](size, m.onEvict, ttl)
	return m
}

// NewManagerFromConfig 读取 table.max_tables 和 table.idle_ttl
func NewManagerFromConfig(opts ...Option) *Manager {
	return NewManager(viper.GetInt("table.max_tables"), viper.GetDuration("table.idle_ttl"), opts...)
}

func (m *Manager) onEvict(id string, t *Table) {
	t.Close()
	log.Debug().Str("table_id", id).Msg("table evicted")
}

// Create 创建一张牌桌，opts 覆盖默认选项
func (m *Manager) Create(opts ...Option) *Table {
	all := make([]Option, 0, len(m.opts)+len(opts))
	all = append(all, m.opts...)
	all = append(all, opts...)

	t := New(all...)
	m.tables.Add(t.Id(), t)
	log.Debug().Str("table_id", t.Id()).Int("tables", m.tables.Len()).Msg("table created")
	return t
}

// Get 获取牌桌，同时刷新过期时间
func (m *Manager) Get(id string) (*Table, bool) {
	t, ok := m.tables.Get(id)
	if ok {
		// expirable.LRU 的 Get 不会延长过期时间，重新加入
		m.tables.Add(id, t)
	}
	return t, ok
}

// Remove 删除并关闭牌桌
func (m *Manager) Remove(id string) bool {
	return m.tables.Remove(id)
}

// Len 当前的牌桌数量
func (m *Manager) Len() int {
	return m.tables.Len()
}

// Purge 关闭所有牌桌
func (m *Manager) Purge() {
	m.tables.Purge()
}
