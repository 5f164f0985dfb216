package history

import "testing"

func TestStack_UndoRedoLinearModel(t *testing.T) {
	s := NewStack("initial", 50)
	s.Update("a")
	s.Update("b")

	state, ok := s.Undo()
	if !ok || state != "a" {
		t.Fatalf("undo: got (%q, %v), want (a, true)", state, ok)
	}
	if !s.CanRedo() {
		t.Fatalf("expected redo to be available after undo")
	}

	// 撤销后推入新状态，redo 分支被丢弃。
	s.Update("c")
	if s.CanRedo() {
		t.Fatalf("redo branch must be discarded after a new update")
	}
	if got := s.State(); got != "c" {
		t.Fatalf("state = %q, want c", got)
	}
}

func TestStack_RedoRestoresUndoneState(t *testing.T) {
	s := NewStack(1, 50)
	s.Update(2)
	s.Update(3)
	s.Undo()
	s.Undo()

	state, ok := s.Redo()
	if !ok || state != 2 {
		t.Fatalf("redo: got (%d, %v), want (2, true)", state, ok)
	}
	state, ok = s.Redo()
	if !ok || state != 3 {
		t.Fatalf("redo: got (%d, %v), want (3, true)", state, ok)
	}
	if _, ok := s.Redo(); ok {
		t.Fatalf("redo past the end must be a no-op")
	}
}

func TestStack_BoundedCapacity(t *testing.T) {
	const max = 10
	s := NewStack(0, max)
	for i := 1; i <= max+5; i++ {
		s.Update(i)
	}
	if s.Len() > max {
		t.Fatalf("history length %d exceeds max %d", s.Len(), max)
	}
	// 指针仍指向刚推入的状态。
	if got := s.State(); got != max+5 {
		t.Fatalf("state = %d, want %d", got, max+5)
	}
	if s.Index() != s.Len()-1 {
		t.Fatalf("index %d not at top of history (len %d)", s.Index(), s.Len())
	}
}

func TestStack_UpdateDuringReplayIsNoOp(t *testing.T) {
	s := NewStack("a", 50)
	s.Update("b")
	s.beginReplay()
	if pushed := s.Update("c"); pushed {
		t.Fatalf("update during replay must not be recorded")
	}
	s.endReplay()
	if s.Len() != 2 {
		t.Fatalf("history length = %d, want 2", s.Len())
	}
}

func TestStack_Reset(t *testing.T) {
	s := NewStack("a", 50)
	s.Update("b")
	s.Update("c")
	s.Undo()

	s.Reset("fresh")
	if s.CanUndo() || s.CanRedo() {
		t.Fatalf("reset must discard all undo/redo information")
	}
	if got := s.State(); got != "fresh" {
		t.Fatalf("state = %q, want fresh", got)
	}
}

func TestStack_UndoAtBottomIsNoOp(t *testing.T) {
	s := NewStack("only", 50)
	if _, ok := s.Undo(); ok {
		t.Fatalf("undo with a single snapshot must be a no-op")
	}
	if got := s.State(); got != "only" {
		t.Fatalf("state = %q, want only", got)
	}
}

type doc struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

func TestSync_PushesOnlyOnDivergence(t *testing.T) {
	s := NewSync(doc{Title: "t"}, 50)

	if pushed := s.Set(doc{Title: "t"}); pushed {
		t.Fatalf("identical state must not be recorded")
	}
	if pushed := s.Set(doc{Title: "t", Lines: []string{"a"}}); !pushed {
		t.Fatalf("diverging state must be recorded")
	}

	canUndo, canRedo, length, _ := s.Info()
	if !canUndo || canRedo || length != 2 {
		t.Fatalf("info = (%v, %v, %d), want (true, false, 2)", canUndo, canRedo, length)
	}
}

func TestSync_UndoRestoresLiveStateAndFiresCallback(t *testing.T) {
	s := NewSync(doc{Title: "v1"}, 50)
	s.Set(doc{Title: "v2"})

	var restored []string
	s.OnRestore(func(d doc) { restored = append(restored, d.Title) })

	state, ok := s.Undo()
	if !ok || state.Title != "v1" {
		t.Fatalf("undo: got (%+v, %v)", state, ok)
	}
	if got := s.Live(); got.Title != "v1" {
		t.Fatalf("live state not restored: %+v", got)
	}
	if len(restored) != 1 || restored[0] != "v1" {
		t.Fatalf("restore callback = %v, want [v1]", restored)
	}

	state, ok = s.Redo()
	if !ok || state.Title != "v2" {
		t.Fatalf("redo: got (%+v, %v)", state, ok)
	}
}

func TestSync_UndoOnFreshSyncIsNoOp(t *testing.T) {
	s := NewSync(doc{Title: "only"}, 50)
	if _, ok := s.Undo(); ok {
		t.Fatalf("nothing to undo on a fresh sync")
	}
}
