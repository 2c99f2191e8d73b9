// Package control implements minecraftd's control-plane: a Unix domain
// socket speaking a length-prefixed protobuf protocol (mcctl and any other
// client dial in here), dispatching to the supervisor and provider catalog.
package control

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/oriku/minecraftd/internal/manifest"
	"github.com/oriku/minecraftd/internal/providers"
	"github.com/oriku/minecraftd/internal/supervisor"
	"github.com/oriku/minecraftd/pkg/logger"
)

// maxFrameSize guards against a corrupt or hostile length prefix forcing an
// unbounded allocation.
const maxFrameSize = 32 << 20

// Server is the daemon's control-plane listener: one Unix domain socket,
// one goroutine per connection, request handling serialized per connection.
type Server struct {
	socketPath string
	sup        *supervisor.Supervisor
	catalog    *providers.Registry
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
	wg       sync.WaitGroup
}

// New constructs a Server. It does not bind until Serve is called.
func New(socketPath string, sup *supervisor.Supervisor, catalog *providers.Registry, log *logger.Logger) *Server {
	return &Server{socketPath: socketPath, sup: sup, catalog: catalog, log: log}
}

// Serve removes any stale socket file, binds, and accepts connections until
// ctx is canceled or Stop is called. The socket file is always removed
// before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("control: listen on %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	defer os.Remove(s.socketPath)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-done:
		}
	}()

	s.log.Info("control: listening on %s", s.socketPath)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if ctx.Err() != nil || stopped {
				break
			}
			return fmt.Errorf("control: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.handleConn(ctx, conn); err != nil && !errors.Is(err, io.EOF) {
				s.log.Error("control: connection error: %v", err)
			}
		}()
	}

	s.wg.Wait()
	return nil
}

// Stop closes the listener, unblocking Serve's accept loop.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("control: frame of %d bytes exceeds maximum", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// attachResult carries a terminal handle out of dispatch when a request asks
// to attach. Its presence tells handleConn to switch the connection into
// terminal framing after sending the (empty) response.
type attachResult struct {
	reader *supervisor.TerminalReader
	writer *supervisor.TerminalWriter
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	for {
		data, err := readFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		req, decodeErr := DecodeRequest(data)

		var resp *Response
		var attach *attachResult
		if decodeErr != nil {
			resp = &Response{Error: &ErrorResponse{Message: decodeErr.Error()}}
		} else {
			resp, attach, err = s.dispatch(ctx, req)
			if err != nil {
				s.log.Warn("control: request failed: %v", err)
				resp = &Response{Error: &ErrorResponse{Message: err.Error()}}
			}
		}
		if resp == nil {
			resp = &Response{}
		}

		if err := writeFrame(conn, EncodeResponse(resp)); err != nil {
			return err
		}

		if attach != nil {
			return s.handleTerminal(conn, attach.reader, attach.writer)
		}
	}
}

func requireAbs(serverDir string) error {
	if !filepath.IsAbs(serverDir) {
		return fmt.Errorf("%w: server_dir must be absolute, got %q", ErrProtocol, serverDir)
	}
	return nil
}

// dispatch routes one decoded Request to the supervisor or provider catalog.
// A nil *Response with a nil error and nil *attachResult never happens:
// every branch returns either a response, an attach handle, or an error.
func (s *Server) dispatch(ctx context.Context, req *Request) (*Response, *attachResult, error) {
	switch {
	case req.GetServerImplementations != nil:
		impls := s.catalog.Implementations()
		names := make([]string, 0, len(impls))
		for _, impl := range impls {
			names = append(names, impl.Name())
		}
		return &Response{GetServerImplementations: &GetServerImplementationsResponse{Implementations: names}}, nil, nil

	case req.GetVersions != nil:
		impl, ok := s.catalog.Implementation(req.GetVersions.ServerImplementation)
		if !ok {
			return nil, nil, fmt.Errorf("unknown server implementation %q", req.GetVersions.ServerImplementation)
		}
		versions, err := impl.Versions(ctx)
		if err != nil {
			return nil, nil, err
		}
		return &Response{GetVersions: &GetVersionsResponse{Versions: versions}}, nil, nil

	case req.GetBuilds != nil:
		impl, ok := s.catalog.Implementation(req.GetBuilds.ServerImplementation)
		if !ok {
			return nil, nil, fmt.Errorf("unknown server implementation %q", req.GetBuilds.ServerImplementation)
		}
		builds, err := impl.Builds(ctx, req.GetBuilds.Version)
		if err != nil {
			return nil, nil, err
		}
		out := make([]Build, 0, len(builds))
		for _, b := range builds {
			out = append(out, Build{Build: b.Build, Stable: b.Stable})
		}
		return &Response{GetBuilds: &GetBuildsResponse{Builds: out}}, nil, nil

	case req.CreateServer != nil:
		r := req.CreateServer
		if err := requireAbs(r.ServerDir); err != nil {
			return nil, nil, err
		}
		connType := manifest.ConnectionDirect
		if r.Connection == ConnectionProxy {
			connType = manifest.ConnectionProxy
		}
		if err := s.sup.CreateServer(ctx, r.Name, r.ServerDir, r.ServerImplementation, r.Version, r.Build, connType, r.Hostname); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.StartServer != nil:
		if err := requireAbs(req.StartServer.ServerDir); err != nil {
			return nil, nil, err
		}
		if err := s.sup.Start(ctx, req.StartServer.ServerDir); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.StopServer != nil:
		if err := requireAbs(req.StopServer.ServerDir); err != nil {
			return nil, nil, err
		}
		if err := s.sup.Stop(ctx, req.StopServer.ServerDir); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.KillServer != nil:
		if err := requireAbs(req.KillServer.ServerDir); err != nil {
			return nil, nil, err
		}
		if err := s.sup.Kill(req.KillServer.ServerDir); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.RestartServer != nil:
		if err := requireAbs(req.RestartServer.ServerDir); err != nil {
			return nil, nil, err
		}
		if err := s.sup.Restart(ctx, req.RestartServer.ServerDir); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.WaitServerReady != nil:
		if err := requireAbs(req.WaitServerReady.ServerDir); err != nil {
			return nil, nil, err
		}
		if err := s.sup.WaitReady(ctx, req.WaitServerReady.ServerDir); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.AttachTerminal != nil:
		if err := requireAbs(req.AttachTerminal.ServerDir); err != nil {
			return nil, nil, err
		}
		reader, writer, err := s.sup.AttachTerminal(req.AttachTerminal.ServerDir)
		if err != nil {
			return nil, nil, err
		}
		return nil, &attachResult{reader: reader, writer: writer}, nil

	case req.GetRunningServers != nil:
		infos := s.sup.List(ctx)
		servers := make([]RunningServerInfo, 0, len(infos))
		for _, info := range infos {
			rs := RunningServerInfo{
				ServerDir:     info.ServerDir,
				Name:          info.Name,
				Status:        info.Status.String(),
				ServerPort:    int32(info.ServerPort),
				UptimeSeconds: int64(info.Uptime.Seconds()),
			}
			if info.Players != nil {
				rs.HasPlayers = true
				rs.PlayersOnline = int32(info.Players.Online)
				rs.PlayersMax = int32(info.Players.Max)
			}
			servers = append(servers, rs)
		}
		return &Response{GetRunningServers: &GetRunningServersResponse{Servers: servers}}, nil, nil

	case req.UpdateServer != nil:
		r := req.UpdateServer
		if err := requireAbs(r.ServerDir); err != nil {
			return nil, nil, err
		}
		result, err := s.sup.UpdateServer(ctx, r.ServerDir, r.UpdateType == UpdateStable)
		if err != nil {
			return nil, nil, err
		}
		return &Response{UpdateServer: &UpdateServerResponse{
			Updated:    result.Updated,
			OldVersion: result.OldVersion,
			OldBuild:   result.OldBuild,
			NewVersion: result.NewVersion,
			NewBuild:   result.NewBuild,
		}}, nil, nil

	case req.GetExtensionProviders != nil:
		extProviders := s.catalog.ExtensionProviders()
		names := make([]string, 0, len(extProviders))
		for _, p := range extProviders {
			names = append(names, p.Name())
		}
		return &Response{GetExtensionProviders: &GetExtensionProvidersResponse{Providers: names}}, nil, nil

	case req.SearchExtension != nil:
		r := req.SearchExtension
		provider, ok := s.catalog.Extension(r.Provider)
		if !ok {
			return nil, nil, fmt.Errorf("unknown extension provider %q", r.Provider)
		}
		results, err := provider.Search(ctx, r.ExtensionType.String(), r.ServerVersion, r.Query)
		if err != nil {
			return nil, nil, err
		}
		out := make([]ExtensionInfo, 0, len(results))
		for _, e := range results {
			out = append(out, ExtensionInfo{ID: e.ID, Type: e.Type, Name: e.Name})
		}
		return &Response{SearchExtension: &SearchExtensionResponse{Extensions: out}}, nil, nil

	case req.GetExtensionVersions != nil:
		r := req.GetExtensionVersions
		provider, ok := s.catalog.Extension(r.Provider)
		if !ok {
			return nil, nil, fmt.Errorf("unknown extension provider %q", r.Provider)
		}
		versions, err := provider.Versions(ctx, r.ExtensionType.String(), r.ServerVersion, r.ExtensionID)
		if err != nil {
			return nil, nil, err
		}
		out := make([]ExtensionVersionInfo, 0, len(versions))
		for _, v := range versions {
			out = append(out, ExtensionVersionInfo{ID: v.ID, Version: v.Version, IsStable: v.IsStable})
		}
		return &Response{GetExtensionVersions: &GetExtensionVersionsResponse{Versions: out}}, nil, nil

	case req.AddExtension != nil:
		r := req.AddExtension
		if err := requireAbs(r.ServerDir); err != nil {
			return nil, nil, err
		}
		extType := manifest.ExtensionMod
		if r.ExtensionType == ExtensionPlugin {
			extType = manifest.ExtensionPlugin
		}
		if err := s.sup.AddExtension(ctx, r.ServerDir, r.Provider, extType, r.ExtensionID, r.VersionID, r.AutoUpdate); err != nil {
			return nil, nil, err
		}
		return &Response{}, nil, nil

	case req.ResolveExtensionURL != nil:
		provider, extType, id, found := providers.ResolveExtensionURL(s.catalog.ExtensionProviders(), req.ResolveExtensionURL.URL)
		return &Response{ResolveExtensionURL: &ResolveExtensionURLResponse{
			Found:         found,
			Provider:      provider,
			ExtensionType: extType,
			ID:            id,
		}}, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: request has no recognized payload", ErrProtocol)
	}
}
