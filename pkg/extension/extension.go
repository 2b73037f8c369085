package extension

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Extension 进程依赖的外部资源，例如 redis 连接和事件总线
type Extension interface {
	Name() string // 名称，用于日志
	Load() error  // 加载，失败返回 error
	Exit()        // 退出，确保资源释放
}

// funcExtension 用两个函数实现 Extension
type funcExtension struct {
	name string
	load func() error
	exit func()
}

// New 用函数创建扩展，load 和 exit 都可以为空
func New(name string, load func() error, exit func()) Extension {
	return &funcExtension{name: name, load: load, exit: exit}
}

func (e *funcExtension) Name() string {
	return e.name
}

func (e *funcExtension) Load() error {
	if e.load == nil {
		return nil
	}
	return e.load()
}

func (e *funcExtension) Exit() {
	if e.exit != nil {
		e.exit()
	}
}

// Manager 按注册顺序加载扩展，按相反顺序退出
type Manager struct {
	mu         sync.Mutex
	registered []Extension
	loaded     []Extension
}

func NewManager() *Manager {
	return &Manager{}
}

// Register 注册扩展，LoadAll 时按注册顺序加载
func (m *Manager) Register(exts ...Extension) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ext := range exts {
		if ext == nil {
			log.Warn().Msg("attempted to register a nil extension")
			continue
		}
		m.registered = append(m.registered, ext)
		log.Trace().Str("extension", ext.Name()).Msg("extension registered")
	}
}

// LoadAll 加载所有还没加载的扩展
// 有一个失败时，本次加载成功的扩展按相反顺序退出，返回第一个错误
func (m *Manager) LoadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var loadedNow []Extension
	for _, ext := range m.registered[len(m.loaded):] {
		if err := ext.Load(); err != nil {
			log.Error().Err(err).Str("extension", ext.Name()).Msg("failed to load extension")
			exitReverse(loadedNow)
			return fmt.Errorf("failed to load extension '%s': %w", ext.Name(), err)
		}
		loadedNow = append(loadedNow, ext)
		log.Debug().Str("extension", ext.Name()).Msg("extension loaded")
	}

	m.loaded = append(m.loaded, loadedNow...)
	return nil
}

// ExitAll 按加载的相反顺序退出所有已加载的扩展
func (m *Manager) ExitAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	exitReverse(m.loaded)
	m.registered = m.registered[len(m.loaded):]
	m.loaded = nil
}

// Loaded 已经加载的扩展名称
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(m.loaded))
	for i, ext := range m.loaded {
		names[i] = ext.Name()
	}
	return names
}

func exitReverse(exts []Extension) {
	for i := len(exts) - 1; i >= 0; i-- {
		exts[i].Exit()
		log.Debug().Str("extension", exts[i].Name()).Msg("extension exited")
	}
}
