// Package supervisor owns the lifecycle of every running Minecraft server
// child process: start, stop, kill, restart, readiness detection, terminal
// I/O fan-out, auto-start on daemon boot, and periodic auto-update checks.
package supervisor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/autostart"
	"github.com/oriku/minecraftd/internal/javaruntime"
	"github.com/oriku/minecraftd/internal/manifest"
	"github.com/oriku/minecraftd/internal/observable"
	"github.com/oriku/minecraftd/internal/portpool"
	"github.com/oriku/minecraftd/internal/providers"
	"github.com/oriku/minecraftd/pkg/logger"
)

// Timing constants, ported from the original runner's tuning.
const (
	stopTimeout              = 180 * time.Second
	minecraftDefaultPort     = 25565
	ptyDefaultRows           = 24
	ptyDefaultCols           = 80
	terminalBufferSize       = 1024
	requestStopRetryLimit    = 5
	requestStopRetryInterval = 10 * time.Second
	readinessPingTimeout     = 10 * time.Second
	readinessPollInterval    = 1 * time.Second
)

// Status is the lifecycle state of a running server.
type Status int

const (
	StatusStarting Status = iota
	StatusReady
	StatusStopping
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusReady:
		return "ready"
	case StatusStopping:
		return "stopping"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StatusValue is the (status, restarting) pair servers broadcast on change.
type StatusValue struct {
	Status     Status
	Restarting bool
}

// PlayersInfo is the live player count read via the SLP ping.
type PlayersInfo struct {
	Online int
	Max    int
}

// Info is a read-only snapshot of one running server, returned by List.
type Info struct {
	ServerDir  string
	Name       string
	Status     Status
	ServerPort int
	Players    *PlayersInfo
	Uptime     time.Duration
}

type serverPort struct {
	proxyHandle *portpool.Handle // non-nil when Connection.Type == Proxy
	direct      int
}

func (p serverPort) port() int {
	if p.proxyHandle != nil {
		return p.proxyHandle.Port()
	}
	return p.direct
}

type runningServer struct {
	id           uuid.UUID
	serverDir    string
	status       *observable.Value[StatusValue]
	manifest     manifest.Manifest
	terminal     *terminalHub
	port         serverPort
	rconPort     *portpool.Handle
	rconPassword string
	pid          int
	runningSince time.Time
}

// registry is the id-keyed table of running servers with secondary indexes
// by hostname (proxy connections only) and canonical server directory.
type registry struct {
	servers       map[uuid.UUID]*runningServer
	hostnameToID  map[string]uuid.UUID
	serverDirToID map[string]uuid.UUID
}

func newRegistry() *registry {
	return &registry{
		servers:       make(map[uuid.UUID]*runningServer),
		hostnameToID:  make(map[string]uuid.UUID),
		serverDirToID: make(map[string]uuid.UUID),
	}
}

func (r *registry) insert(s *runningServer) {
	if s.manifest.Connection.Type == manifest.ConnectionProxy {
		r.hostnameToID[s.manifest.Connection.Hostname] = s.id
	}
	r.serverDirToID[s.serverDir] = s.id
	r.servers[s.id] = s
}

func (r *registry) remove(id uuid.UUID) *runningServer {
	s, ok := r.servers[id]
	if !ok {
		return nil
	}
	if s.manifest.Connection.Type == manifest.ConnectionProxy {
		delete(r.hostnameToID, s.manifest.Connection.Hostname)
	}
	delete(r.serverDirToID, s.serverDir)
	delete(r.servers, id)
	return s
}

func (r *registry) contains(id uuid.UUID) bool {
	_, ok := r.servers[id]
	return ok
}

func (r *registry) get(id uuid.UUID) *runningServer {
	return r.servers[id]
}

func (r *registry) idByHostname(hostname string) (uuid.UUID, bool) {
	id, ok := r.hostnameToID[hostname]
	return id, ok
}

func (r *registry) idByServerDir(serverDir string) (uuid.UUID, bool) {
	resolved, err := filepath.EvalSymlinks(serverDir)
	if err != nil {
		resolved = serverDir
	}
	id, ok := r.serverDirToID[resolved]
	return id, ok
}

// containsDir reports whether resolvedDir (already symlink-resolved by the
// caller) names a currently-running server.
func (r *registry) containsDir(resolvedDir string) bool {
	_, ok := r.serverDirToID[resolvedDir]
	return ok
}

func (r *registry) byServerDir(serverDir string) *runningServer {
	id, ok := r.idByServerDir(serverDir)
	if !ok {
		return nil
	}
	return r.servers[id]
}

// Supervisor is the single daemon-wide owner of all running server
// processes. Construct one with New and call Shutdown before process exit.
type Supervisor struct {
	mu  sync.Mutex
	reg *registry

	ports     *portpool.Pool
	javaRT    *javaruntime.Provisioner
	catalog   *providers.Registry
	cache     *providers.Cache
	autoStart *autostart.Set
	log       *logger.Logger
}

// New constructs a Supervisor. ports is the shared port-allocation pool used
// for both proxied server ports and RCON ports.
func New(ports *portpool.Pool, javaRT *javaruntime.Provisioner, reg *providers.Registry, cache *providers.Cache, auto *autostart.Set, log *logger.Logger) *Supervisor {
	return &Supervisor{
		reg:       newRegistry(),
		ports:     ports,
		javaRT:    javaRT,
		catalog:   reg,
		cache:     cache,
		autoStart: auto,
		log:       log,
	}
}

// ServerIDByHostname resolves a proxy-connection server by virtual host.
func (s *Supervisor) ServerIDByHostname(hostname string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.idByHostname(hostname)
}

// ServerPort returns the locally-bound port a running server's Minecraft
// listener is on, whether pool-acquired (proxy mode) or read verbatim from
// server.properties (direct mode).
func (s *Supervisor) ServerPort(id uuid.UUID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.reg.get(id)
	if srv == nil {
		return 0, false
	}
	return srv.port.port(), true
}

// Status never returns StatusStopped: a server in that terminal state has
// already been removed from the registry by its process watcher.
func (s *Supervisor) Status(id uuid.UUID) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.reg.get(id)
	if srv == nil {
		return 0, false
	}
	return srv.status.Get().Status, true
}

// StatusInfo is Status plus the Restarting flag, which the reverse proxy
// needs to pick between a "starting" and a "restarting" fallback message.
func (s *Supervisor) StatusInfo(id uuid.UUID) (StatusValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv := s.reg.get(id)
	if srv == nil {
		return StatusValue{}, false
	}
	return srv.status.Get(), true
}

// List returns a snapshot of every running server, including a best-effort
// live player count for servers in the Ready state.
func (s *Supervisor) List(ctx context.Context) []Info {
	s.mu.Lock()
	snapshot := make([]*runningServer, 0, len(s.reg.servers))
	for _, srv := range s.reg.servers {
		snapshot = append(snapshot, srv)
	}
	s.mu.Unlock()

	out := make([]Info, 0, len(snapshot))
	for _, srv := range snapshot {
		info := Info{
			ServerDir:  srv.serverDir,
			Name:       srv.manifest.Name,
			Status:     srv.status.Get().Status,
			ServerPort: srv.port.port(),
			Uptime:     time.Since(srv.runningSince),
		}
		if info.Status == StatusReady {
			info.Players = pingPlayers(ctx, srv.port.port())
		}
		out = append(out, info)
	}
	return out
}

func (s *Supervisor) nextID() uuid.UUID {
	for {
		id := uuid.New()
		if !s.reg.contains(id) {
			return id
		}
	}
}

// ErrNotRunning is returned by operations targeting a server directory with
// no running instance.
func errNotRunning(serverDir string) error {
	return fmt.Errorf("supervisor: server at %q is not running", serverDir)
}

// ErrAlreadyRunning is returned by Start when the directory (or its
// hostname, for proxy connections) is already in use.
func errAlreadyRunning(what string) error {
	return fmt.Errorf("supervisor: %s is already running", what)
}
</content>
