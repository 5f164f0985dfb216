// Package history 提供编辑会话用的线性撤销/重做栈。
// 经典线性模型：在撤销点之后推入新状态会丢弃整条 redo 分支。
package history

// Stack 是一个有界的快照栈，index 指向当前状态。
// 不变量：0 <= index < len(snapshots)。
// Stack 本身不加锁，由调用方（Sync 或编辑会话）串行化访问。
type Stack[T any] struct {
	snapshots []T
	index     int
	max       int

	// replaying 为 true 表示正在执行撤销/重做回放，
	// 期间的 Update 调用不会写入历史，防止回放自身被记录。
	replaying bool
}

// NewStack 以 initial 作为唯一快照创建栈。
// max 小于 2 时回退到 50。
func NewStack[T any](initial T, max int) *Stack[T] {
	if max < 2 {
		max = 50
	}
	return &Stack[T]{
		snapshots: []T{initial},
		index:     0,
		max:       max,
	}
}

// State 返回当前快照。
func (s *Stack[T]) State() T {
	return s.snapshots[s.index]
}

// Update 推入一个新快照并返回是否真的写入了历史。
// 回放期间调用是 no-op；超出容量时丢弃最旧的快照。
func (s *Stack[T]) Update(next T) bool {
	if s.replaying {
		return false
	}

	// 丢弃 redo 分支后追加。
	s.snapshots = append(s.snapshots[:s.index+1], next)
	s.index++

	if len(s.snapshots) > s.max {
		drop := len(s.snapshots) - s.max
		s.snapshots = append([]T(nil), s.snapshots[drop:]...)
		s.index -= drop
	}
	return true
}

// Undo 回退一步。不可撤销时返回零值与 false。
func (s *Stack[T]) Undo() (T, bool) {
	if !s.CanUndo() {
		var zero T
		return zero, false
	}
	s.index--
	return s.snapshots[s.index], true
}

// Redo 前进一步。不可重做时返回零值与 false。
func (s *Stack[T]) Redo() (T, bool) {
	if !s.CanRedo() {
		var zero T
		return zero, false
	}
	s.index++
	return s.snapshots[s.index], true
}

// Reset 无条件用单元素历史替换全部状态。
func (s *Stack[T]) Reset(next T) {
	s.snapshots = []T{next}
	s.index = 0
	s.replaying = false
}

func (s *Stack[T]) CanUndo() bool { return s.index > 0 }

func (s *Stack[T]) CanRedo() bool { return s.index < len(s.snapshots)-1 }

// Len 返回历史长度，Index 返回当前指针位置。
func (s *Stack[T]) Len() int   { return len(s.snapshots) }
func (s *Stack[T]) Index() int { return s.index }

// beginReplay/endReplay 是 Sync 在回放快照时使用的显式状态切换，
// 取代依赖延迟清理的布尔标记。
func (s *Stack[T]) beginReplay() { s.replaying = true }
func (s *Stack[T]) endReplay()   { s.replaying = false }
