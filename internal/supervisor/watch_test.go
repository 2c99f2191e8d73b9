package supervisor

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/manifest"
	"github.com/oriku/minecraftd/internal/portpool"
	"github.com/oriku/minecraftd/pkg/logger"
)

// TestWatchProcessRemovesServerOnExit exercises the non-restart path: a
// server that never reached Ready must not trigger restart-on-failure, and
// must be removed from the registry with its ports released.
func TestWatchProcessRemovesServerOnExit(t *testing.T) {
	ports := portpool.New(40000, 40010)
	rconHandle, err := ports.Acquire()
	if err != nil {
		t.Fatalf("acquire rcon port: %v", err)
	}

	s := &Supervisor{reg: newRegistry(), ports: ports, log: logger.New()}
	id := uuid.New()
	srv := newTestServer(id, "/srv/watch-a", manifest.ConnectionDirect, "")
	srv.manifest.RestartOnFailure = true
	srv.rconPort = rconHandle
	s.reg.insert(srv)

	cmd := exec.Command("false")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.watchProcess(context.Background(), id, cmd)

	if s.reg.contains(id) {
		t.Fatal("expected server to be removed from registry after process exit")
	}
	if ports.InUse(rconHandle.Port()) {
		t.Fatal("expected rcon port to be released after process exit")
	}

	// A server that was never Ready must not be restarted, even with
	// restart_on_failure set, so no background doStart should be racing
	// against this assertion; give it a moment in case of a bug.
	time.Sleep(20 * time.Millisecond)
	if s.reg.containsDir("/srv/watch-a") {
		t.Fatal("a never-ready failure must not trigger restart-on-failure")
	}
}

// TestWatchProcessCleanExitDoesNotRestart mirrors the clean-exit path: even
// with restart_on_failure and a prior Ready status, cmd.Wait returning nil
// must not schedule a restart.
func TestWatchProcessCleanExitDoesNotRestart(t *testing.T) {
	ports := portpool.New(40020, 40030)
	rconHandle, err := ports.Acquire()
	if err != nil {
		t.Fatalf("acquire rcon port: %v", err)
	}

	s := &Supervisor{reg: newRegistry(), ports: ports, log: logger.New()}
	id := uuid.New()
	srv := newTestServer(id, "/srv/watch-b", manifest.ConnectionDirect, "")
	srv.manifest.RestartOnFailure = true
	srv.rconPort = rconHandle
	srv.status.Set(StatusValue{Status: StatusReady})
	s.reg.insert(srv)

	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.watchProcess(context.Background(), id, cmd)

	if s.reg.contains(id) {
		t.Fatal("expected server to be removed from registry after process exit")
	}
}
