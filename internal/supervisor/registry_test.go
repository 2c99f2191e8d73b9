package supervisor

import (
	"testing"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/manifest"
	"github.com/oriku/minecraftd/internal/observable"
)

func newTestServer(id uuid.UUID, dir string, connType manifest.ConnectionType, hostname string) *runningServer {
	return &runningServer{
		id:        id,
		serverDir: dir,
		status:    observable.New(StatusValue{Status: StatusStarting}),
		manifest: manifest.Manifest{
			Name:       dir,
			Connection: manifest.Connection{Type: connType, Hostname: hostname},
		},
		port: serverPort{direct: minecraftDefaultPort},
	}
}

func TestRegistryInsertRemove(t *testing.T) {
	reg := newRegistry()
	id := uuid.New()
	srv := newTestServer(id, "/srv/a", manifest.ConnectionProxy, "a.example.com")

	reg.insert(srv)

	if !reg.contains(id) {
		t.Fatal("expected registry to contain inserted id")
	}
	if !reg.containsDir("/srv/a") {
		t.Fatal("expected registry to contain inserted dir")
	}
	if got, ok := reg.idByHostname("a.example.com"); !ok || got != id {
		t.Fatalf("idByHostname = %v, %v; want %v, true", got, ok, id)
	}

	removed := reg.remove(id)
	if removed != srv {
		t.Fatal("remove did not return the inserted server")
	}
	if reg.contains(id) {
		t.Fatal("expected registry to no longer contain removed id")
	}
	if _, ok := reg.idByHostname("a.example.com"); ok {
		t.Fatal("expected hostname index to be cleared on remove")
	}
	if reg.containsDir("/srv/a") {
		t.Fatal("expected dir index to be cleared on remove")
	}
}

func TestRegistryDirectConnectionHasNoHostnameEntry(t *testing.T) {
	reg := newRegistry()
	id := uuid.New()
	srv := newTestServer(id, "/srv/b", manifest.ConnectionDirect, "")
	reg.insert(srv)

	if _, ok := reg.idByHostname(""); ok {
		t.Fatal("direct connection must not register a hostname entry")
	}
	if got := reg.byServerDir("/srv/b"); got != srv {
		t.Fatal("byServerDir should resolve the inserted server")
	}
}

func TestRegistryRemoveUnknownIsNoop(t *testing.T) {
	reg := newRegistry()
	if reg.remove(uuid.New()) != nil {
		t.Fatal("remove of unknown id should return nil")
	}
}
