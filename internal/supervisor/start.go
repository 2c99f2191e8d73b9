package supervisor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/manifest"
	"github.com/oriku/minecraftd/internal/mcproto"
	"github.com/oriku/minecraftd/internal/observable"
	"github.com/oriku/minecraftd/internal/portpool"
	"github.com/oriku/minecraftd/internal/properties"
)

const rconPasswordLength = 16
const rconPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Start launches the server manifested at serverDir. Fails if that
// directory (or its hostname, for proxy connections) is already running.
func (s *Supervisor) Start(ctx context.Context, serverDir string) error {
	return s.doStart(ctx, serverDir, false, false)
}

// Restart stops then restarts the server at serverDir, without touching its
// auto-start membership.
func (s *Supervisor) Restart(ctx context.Context, serverDir string) error {
	s.mu.Lock()
	srv := s.reg.byServerDir(serverDir)
	s.mu.Unlock()
	if srv == nil {
		return errNotRunning(serverDir)
	}

	if err := s.doStop(ctx, srv.id, true); err != nil {
		return err
	}
	return s.doStart(ctx, serverDir, true, false)
}

// StartAutoStartServers launches every server directory persisted in the
// auto-start set, concurrently, best-effort: a failure removes that
// directory from the set rather than retrying forever.
func (s *Supervisor) StartAutoStartServers(ctx context.Context) {
	for _, dir := range s.autoStart.All() {
		dir := dir
		go func() {
			if err := s.doStart(ctx, dir, false, true); err != nil {
				s.log.Error("supervisor: auto-start %s failed: %v", dir, err)
				s.autoStart.Remove(dir)
			}
		}()
	}
}

func (s *Supervisor) doStart(ctx context.Context, serverDir string, restarting, autoStarting bool) error {
	resolved, err := filepath.EvalSymlinks(serverDir)
	if err != nil {
		resolved = serverDir
	}

	s.mu.Lock()
	if s.reg.containsDir(resolved) {
		s.mu.Unlock()
		return errAlreadyRunning(fmt.Sprintf("server at %q", resolved))
	}
	s.mu.Unlock()

	s.log.Info("Starting server at %q", resolved)

	m, err := manifest.Load(resolved)
	if err != nil {
		return fmt.Errorf("supervisor: load manifest: %w", err)
	}

	s.checkPendingUpdate(ctx, resolved, m)

	s.mu.Lock()
	if m.Connection.Type == manifest.ConnectionProxy {
		if _, taken := s.reg.idByHostname(m.Connection.Hostname); taken {
			s.mu.Unlock()
			return errAlreadyRunning(fmt.Sprintf("hostname %q", m.Connection.Hostname))
		}
	}
	id := s.nextID()
	s.mu.Unlock()

	if m.AutoStart {
		s.autoStart.Add(resolved)
	} else {
		s.autoStart.Remove(resolved)
		if autoStarting {
			s.log.Info("Server at %q is not set to auto-start, skipping", resolved)
			return nil
		}
	}

	port, rconPort, rconPassword, err := s.prepareServer(resolved, m)
	if err != nil {
		return fmt.Errorf("supervisor: prepare server properties: %w", err)
	}

	s.reconcileExtensions(ctx, resolved, m)

	javaHome := m.JavaRuntime.JavaHome(s.javaRTRuntimesDir())
	if m.JavaRuntime.Type == manifest.JavaRuntimeMojang {
		if err := s.javaRT.Prepare(ctx, m.JavaRuntime.Name); err != nil {
			port.proxyHandle.Release()
			rconPort.Release()
			return fmt.Errorf("supervisor: prepare java runtime: %w", err)
		}
	}
	javaPath := filepath.Join(javaHome, "bin", "java")

	serverJarPath, err := s.resolveServerJar(ctx, m)
	if err != nil {
		port.proxyHandle.Release()
		rconPort.Release()
		return err
	}

	args := substitutePlaceholders(m.Command, javaPath, serverJarPath)
	if len(args) == 0 {
		port.proxyHandle.Release()
		rconPort.Release()
		return fmt.Errorf("supervisor: manifest command is empty")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = resolved

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyDefaultRows, Cols: ptyDefaultCols})
	if err != nil {
		port.proxyHandle.Release()
		rconPort.Release()
		return fmt.Errorf("supervisor: spawn server process: %w", err)
	}

	hub := newTerminalHub(ptmx)

	srv := &runningServer{
		id:           id,
		serverDir:    resolved,
		status:       observable.New(StatusValue{Status: StatusStarting, Restarting: restarting}),
		manifest:     *m,
		terminal:     hub,
		port:         port,
		rconPort:     rconPort,
		rconPassword: rconPassword,
		pid:          cmd.Process.Pid,
		runningSince: time.Now(),
	}

	s.mu.Lock()
	s.reg.insert(srv)
	s.mu.Unlock()

	go s.watchProcess(ctx, id, cmd)
	go s.checkReadiness(ctx, id, port.port())

	return nil
}

func (s *Supervisor) javaRTRuntimesDir() string {
	return s.javaRT.RuntimesDir()
}

func (s *Supervisor) resolveServerJar(ctx context.Context, m *manifest.Manifest) (string, error) {
	impl, ok := s.catalog.Implementation(m.ServerImplementation)
	if !ok {
		return "", fmt.Errorf("supervisor: unknown server implementation %q", m.ServerImplementation)
	}
	path, err := s.cache.GetServerJar(ctx, impl, m.Version, m.Build)
	if err != nil {
		return "", fmt.Errorf("supervisor: prepare server jar: %w", err)
	}
	return path, nil
}

func (s *Supervisor) prepareServer(serverDir string, m *manifest.Manifest) (serverPort, *portpool.Handle, string, error) {
	props, err := properties.Load(serverDir)
	if err != nil {
		props = properties.New()
	}

	var port serverPort
	if m.Connection.Type == manifest.ConnectionProxy {
		handle, err := s.ports.Acquire()
		if err != nil {
			return serverPort{}, nil, "", err
		}
		props.Set("server-port", strconv.Itoa(handle.Port()))
		port = serverPort{proxyHandle: handle}
	} else {
		direct := minecraftDefaultPort
		if raw, ok := props.Get("server-port"); ok {
			if parsed, err := strconv.Atoi(raw); err == nil {
				direct = parsed
			}
		}
		port = serverPort{direct: direct}
	}

	rconHandle, err := s.ports.Acquire()
	if err != nil {
		port.proxyHandle.Release()
		return serverPort{}, nil, "", err
	}
	props.Set("enable-rcon", "true")
	props.Set("rcon.port", strconv.Itoa(rconHandle.Port()))

	rconPassword, ok := props.Get("rcon.password")
	if !ok || rconPassword == "" {
		rconPassword, err = randomAlphanumeric(rconPasswordLength)
		if err != nil {
			port.proxyHandle.Release()
			rconHandle.Release()
			return serverPort{}, nil, "", err
		}
		props.Set("rcon.password", rconPassword)
	}

	if err := props.Save(serverDir); err != nil {
		port.proxyHandle.Release()
		rconHandle.Release()
		return serverPort{}, nil, "", err
	}

	s.log.Debug("Prepared server properties with server_port=%d, rcon_port=%d", port.port(), rconHandle.Port())

	return port, rconHandle, rconPassword, nil
}

func substitutePlaceholders(command []string, javaPath, serverJarPath string) []string {
	out := make([]string, len(command))
	for i, part := range command {
		part = strings.ReplaceAll(part, "${java}", javaPath)
		part = strings.ReplaceAll(part, "${server_jar}", serverJarPath)
		out[i] = part
	}
	return out
}

func randomAlphanumeric(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(rconPasswordAlphabet))))
		if err != nil {
			return "", fmt.Errorf("supervisor: generate rcon password: %w", err)
		}
		out[i] = rconPasswordAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func (s *Supervisor) watchProcess(ctx context.Context, id uuid.UUID, cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		s.log.Info("Server process %s exited: %v", id, err)
	} else {
		s.log.Info("Server process %s exited cleanly", id)
	}

	s.mu.Lock()
	srv := s.reg.get(id)
	var serverDir string
	var lastWasReady, restartOnFailure bool
	if srv != nil {
		lastWasReady = srv.status.Get().Status == StatusReady
		restartOnFailure = srv.manifest.RestartOnFailure
		serverDir = srv.serverDir
		srv.status.Set(StatusValue{Status: StatusStopped})
		srv.status.Close()
		srv.rconPort.Release()
		if srv.port.proxyHandle != nil {
			srv.port.proxyHandle.Release()
		}
	}
	s.reg.remove(id)
	s.mu.Unlock()

	if err != nil && restartOnFailure && lastWasReady {
		s.log.Info("Server %s failed after reaching ready, restarting", id)
		go func() {
			if startErr := s.doStart(ctx, serverDir, true, false); startErr != nil {
				s.log.Error("supervisor: restart-on-failure for %s: %v", serverDir, startErr)
			}
		}()
	}
}

func (s *Supervisor) checkReadiness(ctx context.Context, id uuid.UUID, port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	for {
		deadline := time.Now().Add(readinessPingTimeout)
		if _, err := mcproto.Ping("tcp", addr, deadline); err == nil {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(readinessPollInterval):
		}

		status, ok := s.Status(id)
		if !ok || status != StatusStarting {
			return
		}
	}

	s.mu.Lock()
	srv := s.reg.get(id)
	s.mu.Unlock()
	if srv == nil {
		return
	}
	srv.status.Set(StatusValue{Status: StatusReady})
	s.log.Info("Server %s is now ready", id)
}
</content>
