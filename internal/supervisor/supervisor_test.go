package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/manifest"
)

func newTestSupervisor() *Supervisor {
	return &Supervisor{reg: newRegistry()}
}

func TestSupervisorStatusAndServerPort(t *testing.T) {
	s := newTestSupervisor()
	id := uuid.New()
	srv := newTestServer(id, "/srv/a", manifest.ConnectionDirect, "")
	srv.port = serverPort{direct: 25566}
	s.reg.insert(srv)

	status, ok := s.Status(id)
	if !ok || status != StatusStarting {
		t.Fatalf("Status = %v, %v; want StatusStarting, true", status, ok)
	}

	port, ok := s.ServerPort(id)
	if !ok || port != 25566 {
		t.Fatalf("ServerPort = %v, %v; want 25566, true", port, ok)
	}

	if _, ok := s.Status(uuid.New()); ok {
		t.Fatal("Status of unknown id should report ok=false")
	}
}

func TestSupervisorServerIDByHostname(t *testing.T) {
	s := newTestSupervisor()
	id := uuid.New()
	srv := newTestServer(id, "/srv/b", manifest.ConnectionProxy, "b.example.com")
	s.reg.insert(srv)

	got, ok := s.ServerIDByHostname("b.example.com")
	if !ok || got != id {
		t.Fatalf("ServerIDByHostname = %v, %v; want %v, true", got, ok, id)
	}
	if _, ok := s.ServerIDByHostname("missing.example.com"); ok {
		t.Fatal("expected ok=false for unregistered hostname")
	}
}

func TestSupervisorListSnapshotsRunningServers(t *testing.T) {
	s := newTestSupervisor()
	id := uuid.New()
	srv := newTestServer(id, "/srv/c", manifest.ConnectionDirect, "")
	srv.runningSince = time.Now().Add(-time.Minute)
	s.reg.insert(srv)

	infos := s.List(context.Background())
	if len(infos) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(infos))
	}
	info := infos[0]
	if info.ServerDir != "/srv/c" || info.Status != StatusStarting {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Uptime <= 0 {
		t.Fatal("expected positive uptime")
	}
	if info.Players != nil {
		t.Fatal("a non-ready server should report no player info")
	}
}

func TestNextIDAvoidsCollision(t *testing.T) {
	s := newTestSupervisor()
	id := uuid.New()
	s.reg.insert(newTestServer(id, "/srv/d", manifest.ConnectionDirect, ""))

	for i := 0; i < 100; i++ {
		if got := s.nextID(); got == id {
			t.Fatal("nextID must not collide with an existing running server id")
		}
	}
}
