package editor

import (
	"sync"
	"time"

	"cvforge/internal/history"
	"cvforge/internal/resume"
)

// Session 是一份简历的服务端编辑会话，持有撤销/重做历史。
// 历史只存在于内存：会话被回收后撤销链即丢失，数据库里永远是最新状态。
type Session struct {
	ResumeID uint

	sync        *history.Sync[resume.Data]
	lastTouched time.Time
}

// Apply 应用一次编辑，返回是否真的推入了历史。
func (s *Session) Apply(next resume.Data) bool {
	return s.sync.Set(next)
}

// Undo 回退一步。没有可撤销的历史时返回 false。
func (s *Session) Undo() (resume.Data, bool) {
	return s.sync.Undo()
}

// Redo 前进一步。没有可重做的历史时返回 false。
func (s *Session) Redo() (resume.Data, bool) {
	return s.sync.Redo()
}

// Live 返回当前活动状态。
func (s *Session) Live() resume.Data {
	return s.sync.Live()
}

// OnRestore 注册撤销/重做落库回调。回调不得再调用本会话的方法。
func (s *Session) OnRestore(fn func(resume.Data)) {
	s.sync.OnRestore(fn)
}

// Info 返回撤销/重做可用性与历史长度。
func (s *Session) Info() (canUndo, canRedo bool, length, index int) {
	return s.sync.Info()
}

// Manager 按简历 ID 管理编辑会话，闲置会话在下次访问时顺手回收。
type Manager struct {
	mu       sync.Mutex
	sessions map[uint]*Session

	maxHistory int
	idleTTL    time.Duration
	now        func() time.Time
}

// NewManager 构造会话管理器。idleTTL<=0 时默认 30 分钟。
func NewManager(maxHistory int, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Manager{
		sessions:   make(map[uint]*Session),
		maxHistory: maxHistory,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

// Acquire 返回简历的编辑会话；不存在时用 load 提供的初始状态创建。
// 每次访问都会刷新会话的活跃时间。
func (m *Manager) Acquire(resumeID uint, load func() (resume.Data, error)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked()

	if session, ok := m.sessions[resumeID]; ok {
		session.lastTouched = m.now()
		return session, nil
	}

	initial, err := load()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ResumeID:    resumeID,
		sync:        history.NewSync(initial, m.maxHistory),
		lastTouched: m.now(),
	}
	m.sessions[resumeID] = session
	return session, nil
}

// Drop 立即丢弃简历的编辑会话（简历删除、取消发布等场合）。
func (m *Manager) Drop(resumeID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, resumeID)
}

// Len 返回当前活跃会话数。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sweepLocked() {
	cutoff := m.now().Add(-m.idleTTL)
	for id, session := range m.sessions {
		if session.lastTouched.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
