package editor

import (
	"testing"
	"time"

	"cvforge/internal/resume"
)

func dataWithTitle(title string) resume.Data {
	return resume.Data{
		PersonalInfo: resume.PersonalInfo{
			FirstName: "Test",
			LastName:  "User",
			JobTitle:  title,
		},
	}
}

func loadData(d resume.Data) func() (resume.Data, error) {
	return func() (resume.Data, error) { return d, nil }
}

func TestAcquireReturnsSameSession(t *testing.T) {
	m := NewManager(50, time.Hour)

	first, err := m.Acquire(1, loadData(dataWithTitle("a")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	second, err := m.Acquire(1, loadData(dataWithTitle("should-not-load")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if first != second {
		t.Fatal("expected the same session on repeated acquire")
	}
	if got := second.Live().PersonalInfo.JobTitle; got != "a" {
		t.Fatalf("live state = %q, want initial %q", got, "a")
	}
}

func TestSessionUndoRedoRoundTrip(t *testing.T) {
	m := NewManager(50, time.Hour)
	session, err := m.Acquire(7, loadData(dataWithTitle("v1")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if !session.Apply(dataWithTitle("v2")) {
		t.Fatal("expected edit to be recorded")
	}
	if session.Apply(dataWithTitle("v2")) {
		t.Fatal("identical edit must not be recorded twice")
	}

	var restored []string
	session.OnRestore(func(d resume.Data) {
		restored = append(restored, d.PersonalInfo.JobTitle)
	})

	snapshot, ok := session.Undo()
	if !ok || snapshot.PersonalInfo.JobTitle != "v1" {
		t.Fatalf("Undo = (%q, %v), want (v1, true)", snapshot.PersonalInfo.JobTitle, ok)
	}
	snapshot, ok = session.Redo()
	if !ok || snapshot.PersonalInfo.JobTitle != "v2" {
		t.Fatalf("Redo = (%q, %v), want (v2, true)", snapshot.PersonalInfo.JobTitle, ok)
	}

	if len(restored) != 2 || restored[0] != "v1" || restored[1] != "v2" {
		t.Fatalf("restore callbacks = %v, want [v1 v2]", restored)
	}
}

func TestIdleSessionsAreSwept(t *testing.T) {
	m := NewManager(50, 10*time.Minute)
	current := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return current }

	if _, err := m.Acquire(1, loadData(dataWithTitle("a"))); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := m.Acquire(2, loadData(dataWithTitle("b"))); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	// 会话 1 过期，会话 2 保持活跃。
	current = current.Add(9 * time.Minute)
	if _, err := m.Acquire(2, loadData(dataWithTitle("b"))); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	current = current.Add(9 * time.Minute)

	session, err := m.Acquire(3, loadData(dataWithTitle("c")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if session.ResumeID != 3 {
		t.Fatalf("ResumeID = %d, want 3", session.ResumeID)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d after sweep, want 2 (sessions 2 and 3)", m.Len())
	}

	// 过期会话再次获取时应重新加载初始状态。
	fresh, err := m.Acquire(1, loadData(dataWithTitle("reloaded")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got := fresh.Live().PersonalInfo.JobTitle; got != "reloaded" {
		t.Fatalf("live state = %q, want %q", got, "reloaded")
	}
}

func TestDropDiscardsHistory(t *testing.T) {
	m := NewManager(50, time.Hour)
	session, err := m.Acquire(4, loadData(dataWithTitle("v1")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	session.Apply(dataWithTitle("v2"))

	m.Drop(4)

	fresh, err := m.Acquire(4, loadData(dataWithTitle("v2")))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if canUndo, _, _, _ := fresh.Info(); canUndo {
		t.Fatal("history must not survive Drop")
	}
}
