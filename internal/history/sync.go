package history

import (
	"encoding/json"
	"sync"
)

// Sync 在"活动状态"与历史栈之间做双向同步：
// 用户编辑推入历史（仅当与最后一条快照不同），撤销/重做把快照拉回活动状态。
// 回放用 Stack 的 replay 状态隔离，杜绝 live→history→live 的反馈环。
//
// 与纯 UI 场景不同，这里会被多个请求处理协程访问，所以用真正的互斥锁。
type Sync[T any] struct {
	mu    sync.Mutex
	stack *Stack[T]
	live  T

	// onRestore 在撤销/重做把快照写回活动状态时被同步调用，
	// 用于落库等副作用。回调在锁内执行，不得再调用 Sync 自身的方法；
	// 回放期间 Stack 处于 replay 状态，任何路径上的 Update 都不会写历史。
	onRestore func(T)
}

// NewSync 创建同步器，initial 同时作为活动状态与历史起点。
func NewSync[T any](initial T, maxHistory int) *Sync[T] {
	return &Sync[T]{
		stack: NewStack(initial, maxHistory),
		live:  initial,
	}
}

// OnRestore 注册回放回调（用于把恢复的快照落库等副作用）。
func (s *Sync[T]) OnRestore(fn func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRestore = fn
}

// Live 返回当前活动状态。
func (s *Sync[T]) Live() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Set 应用一次用户编辑。只有当新状态与最后记录的快照发生
// 实际差异（JSON 深比较）时才推入历史；返回是否写入了历史。
func (s *Sync[T]) Set(next T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.live = next
	if deepEqual(next, s.stack.State()) {
		return false
	}
	return s.stack.Update(next)
}

// Undo 回退一步并把快照写回活动状态。
func (s *Sync[T]) Undo() (T, bool) {
	return s.replay((*Stack[T]).Undo)
}

// Redo 前进一步并把快照写回活动状态。
func (s *Sync[T]) Redo() (T, bool) {
	return s.replay((*Stack[T]).Redo)
}

func (s *Sync[T]) replay(step func(*Stack[T]) (T, bool)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stack.beginReplay()
	defer s.stack.endReplay()

	snapshot, ok := step(s.stack)
	if !ok {
		var zero T
		return zero, false
	}
	s.live = snapshot
	if s.onRestore != nil {
		s.onRestore(snapshot)
	}
	return snapshot, true
}

// Reset 丢弃全部历史，以 next 重新开始。
func (s *Sync[T]) Reset(next T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack.Reset(next)
	s.live = next
}

// Info 返回撤销/重做可用性与历史长度快照。
func (s *Sync[T]) Info() (canUndo, canRedo bool, length, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack.CanUndo(), s.stack.CanRedo(), s.stack.Len(), s.stack.Index()
}

func deepEqual[T any](a, b T) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}
