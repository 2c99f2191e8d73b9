package observable

import (
	"testing"
	"time"
)

func TestGetReturnsCurrent(t *testing.T) {
	v := New(1)
	if v.Get() != 1 {
		t.Fatalf("expected initial value 1")
	}
	v.Set(2)
	if v.Get() != 2 {
		t.Fatalf("expected updated value 2")
	}
}

func TestWaitUntilResolvesOnFutureValue(t *testing.T) {
	v := New("Starting")

	done := make(chan error, 1)
	go func() {
		done <- v.WaitUntil(func(s string) bool { return s == "Ready" }, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	v.Set("Ready")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitUntil did not resolve in time")
	}
}

func TestWaitUntilFailsOnClose(t *testing.T) {
	v := New("Starting")

	done := make(chan error, 1)
	go func() {
		done <- v.WaitUntil(func(s string) bool { return s == "Ready" }, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	v.Close()

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitUntil did not resolve after Close")
	}
}

func TestWaitUntilImmediateTrue(t *testing.T) {
	v := New(5)
	if err := v.WaitUntil(func(n int) bool { return n == 5 }, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
</content>
