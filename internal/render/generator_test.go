package render

import (
	"errors"
	"testing"
)

func TestReleaseOnErrorInvokesCleanup(t *testing.T) {
	released := 0
	cleanup := func() { released++ }
	err := errors.New("set document content failed")

	releaseOnError(&err, &cleanup)

	if released != 1 {
		t.Fatalf("expected resources released once, got %d", released)
	}

	// 之后调用方拿到的 cleanup 必须是空操作，不允许二次释放。
	cleanup()
	if released != 1 {
		t.Fatalf("cleanup after release must be a no-op, released %d times", released)
	}
}

func TestReleaseOnErrorKeepsCleanupOnSuccess(t *testing.T) {
	released := false
	cleanup := func() { released = true }
	var err error

	releaseOnError(&err, &cleanup)

	if released {
		t.Fatal("resources must not be released on the success path")
	}
	cleanup()
	if !released {
		t.Fatal("caller-held cleanup must stay functional on success")
	}
}
