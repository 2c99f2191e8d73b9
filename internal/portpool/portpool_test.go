package portpool

import "testing"

func TestAcquireAscending(t *testing.T) {
	p := New(5000, 5002)

	h1, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	if h1.Port() != 5000 {
		t.Fatalf("expected first port 5000, got %d", h1.Port())
	}

	h2, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if h2.Port() != 5001 {
		t.Fatalf("expected second port 5001, got %d", h2.Port())
	}
}

func TestExhaustionLeavesUsedSetUnchanged(t *testing.T) {
	p := New(6000, 6000)

	h1, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}

	if _, err := p.Acquire(); err != ErrExhausted {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !p.InUse(6000) {
		t.Fatalf("expected port 6000 to remain in use after failed acquire")
	}

	h1.Release()
	if p.InUse(6000) {
		t.Fatalf("expected port 6000 to be free after release")
	}

	h2, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if h2.Port() != 6000 {
		t.Fatalf("expected reacquired port 6000, got %d", h2.Port())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := New(7000, 7001)
	h, _ := p.Acquire()
	h.Release()
	h.Release()

	if p.InUse(7000) {
		t.Fatalf("expected port free after double release")
	}
}
</content>
