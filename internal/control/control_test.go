package control

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oriku/minecraftd/internal/autostart"
	"github.com/oriku/minecraftd/internal/javaruntime"
	"github.com/oriku/minecraftd/internal/portpool"
	"github.com/oriku/minecraftd/internal/providers"
	"github.com/oriku/minecraftd/internal/supervisor"
	"github.com/oriku/minecraftd/pkg/logger"
)

func TestRequestRoundTrip(t *testing.T) {
	cases := []*Request{
		{GetServerImplementations: &GetServerImplementationsRequest{}},
		{GetVersions: &GetVersionsRequest{ServerImplementation: "vanilla"}},
		{GetBuilds: &GetBuildsRequest{ServerImplementation: "vanilla", Version: "1.21.1"}},
		{CreateServer: &CreateServerRequest{
			Name: "survival", ServerDir: "/srv/mc", ServerImplementation: "vanilla",
			Version: "1.21.1", Build: "latest", Connection: ConnectionProxy, Hostname: "mc.example.com",
		}},
		{StartServer: &StartServerRequest{ServerDir: "/srv/mc"}},
		{StopServer: &StopServerRequest{ServerDir: "/srv/mc"}},
		{RestartServer: &RestartServerRequest{ServerDir: "/srv/mc"}},
		{KillServer: &KillServerRequest{ServerDir: "/srv/mc"}},
		{WaitServerReady: &WaitServerReadyRequest{ServerDir: "/srv/mc"}},
		{AttachTerminal: &AttachTerminalRequest{ServerDir: "/srv/mc"}},
		{GetRunningServers: &GetRunningServersRequest{}},
		{UpdateServer: &UpdateServerRequest{ServerDir: "/srv/mc", UpdateType: UpdateLatest}},
		{GetExtensionProviders: &GetExtensionProvidersRequest{}},
		{SearchExtension: &SearchExtensionRequest{Provider: "modrinth", ExtensionType: ExtensionPlugin, ServerVersion: "1.21.1", Query: "worldedit"}},
		{GetExtensionVersions: &GetExtensionVersionsRequest{Provider: "modrinth", ExtensionType: ExtensionMod, ServerVersion: "1.21.1", ExtensionID: "fabric-api"}},
		{AddExtension: &AddExtensionRequest{ServerDir: "/srv/mc", Provider: "modrinth", ExtensionType: ExtensionMod, ExtensionID: "fabric-api", VersionID: "abc123", AutoUpdate: true}},
		{ResolveExtensionURL: &ResolveExtensionURLRequest{URL: "https://modrinth.com/mod/fabric-api"}},
	}

	for i, want := range cases {
		data, err := EncodeRequest(want)
		if err != nil {
			t.Fatalf("case %d: encode: %v", i, err)
		}
		got, err := DecodeRequest(data)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		assertRequestEqual(t, i, want, got)
	}
}

func assertRequestEqual(t *testing.T, i int, want, got *Request) {
	t.Helper()
	switch {
	case want.CreateServer != nil:
		if got.CreateServer == nil || *got.CreateServer != *want.CreateServer {
			t.Fatalf("case %d: CreateServer mismatch: want %+v got %+v", i, want.CreateServer, got.CreateServer)
		}
	case want.StartServer != nil:
		if got.StartServer == nil || *got.StartServer != *want.StartServer {
			t.Fatalf("case %d: StartServer mismatch", i)
		}
	case want.StopServer != nil:
		if got.StopServer == nil || *got.StopServer != *want.StopServer {
			t.Fatalf("case %d: StopServer mismatch", i)
		}
	case want.RestartServer != nil:
		if got.RestartServer == nil || *got.RestartServer != *want.RestartServer {
			t.Fatalf("case %d: RestartServer mismatch", i)
		}
	case want.KillServer != nil:
		if got.KillServer == nil || *got.KillServer != *want.KillServer {
			t.Fatalf("case %d: KillServer mismatch", i)
		}
	case want.WaitServerReady != nil:
		if got.WaitServerReady == nil || *got.WaitServerReady != *want.WaitServerReady {
			t.Fatalf("case %d: WaitServerReady mismatch", i)
		}
	case want.AttachTerminal != nil:
		if got.AttachTerminal == nil || *got.AttachTerminal != *want.AttachTerminal {
			t.Fatalf("case %d: AttachTerminal mismatch", i)
		}
	case want.GetRunningServers != nil:
		if got.GetRunningServers == nil {
			t.Fatalf("case %d: GetRunningServers mismatch", i)
		}
	case want.UpdateServer != nil:
		if got.UpdateServer == nil || *got.UpdateServer != *want.UpdateServer {
			t.Fatalf("case %d: UpdateServer mismatch: want %+v got %+v", i, want.UpdateServer, got.UpdateServer)
		}
	case want.GetExtensionProviders != nil:
		if got.GetExtensionProviders == nil {
			t.Fatalf("case %d: GetExtensionProviders mismatch", i)
		}
	case want.SearchExtension != nil:
		if got.SearchExtension == nil || *got.SearchExtension != *want.SearchExtension {
			t.Fatalf("case %d: SearchExtension mismatch: want %+v got %+v", i, want.SearchExtension, got.SearchExtension)
		}
	case want.GetExtensionVersions != nil:
		if got.GetExtensionVersions == nil || *got.GetExtensionVersions != *want.GetExtensionVersions {
			t.Fatalf("case %d: GetExtensionVersions mismatch: want %+v got %+v", i, want.GetExtensionVersions, got.GetExtensionVersions)
		}
	case want.AddExtension != nil:
		if got.AddExtension == nil || *got.AddExtension != *want.AddExtension {
			t.Fatalf("case %d: AddExtension mismatch: want %+v got %+v", i, want.AddExtension, got.AddExtension)
		}
	case want.ResolveExtensionURL != nil:
		if got.ResolveExtensionURL == nil || *got.ResolveExtensionURL != *want.ResolveExtensionURL {
			t.Fatalf("case %d: ResolveExtensionURL mismatch", i)
		}
	case want.GetVersions != nil:
		if got.GetVersions == nil || *got.GetVersions != *want.GetVersions {
			t.Fatalf("case %d: GetVersions mismatch", i)
		}
	case want.GetBuilds != nil:
		if got.GetBuilds == nil || *got.GetBuilds != *want.GetBuilds {
			t.Fatalf("case %d: GetBuilds mismatch", i)
		}
	case want.GetServerImplementations != nil:
		if got.GetServerImplementations == nil {
			t.Fatalf("case %d: GetServerImplementations mismatch", i)
		}
	default:
		t.Fatalf("case %d: unhandled variant in test", i)
	}
}

func TestDecodeRequestEmptyPayloadIsProtocolError(t *testing.T) {
	_, err := DecodeRequest(nil)
	if err != ErrProtocol {
		t.Fatalf("want ErrProtocol, got %v", err)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{
		GetRunningServers: &GetRunningServersResponse{Servers: []RunningServerInfo{
			{ServerDir: "/srv/mc", Name: "survival", Status: "ready", ServerPort: 25565, HasPlayers: true, PlayersOnline: 2, PlayersMax: 20, UptimeSeconds: 3600},
		}},
	}
	data := EncodeResponse(resp)
	got, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.GetRunningServers.Servers) != 1 || got.GetRunningServers.Servers[0] != resp.GetRunningServers.Servers[0] {
		t.Fatalf("mismatch: want %+v got %+v", resp.GetRunningServers.Servers, got.GetRunningServers.Servers)
	}
}

func TestEmptyResponseRoundTrip(t *testing.T) {
	data := EncodeResponse(&Response{})
	if len(data) != 0 {
		t.Fatalf("want zero-length encoding for empty response, got %d bytes", len(data))
	}
	got, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error != nil {
		t.Fatalf("want no error, got %+v", got.Error)
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	data := EncodeResponse(&Response{Error: &ErrorResponse{Message: "boom"}})
	got, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error == nil || got.Error.Message != "boom" {
		t.Fatalf("want error message %q, got %+v", "boom", got.Error)
	}
}

func TestTerminalInputRoundTrip(t *testing.T) {
	content := &TerminalInput{Content: []byte("hello\n")}
	data := EncodeTerminalInput(content)
	got, err := DecodeTerminalInput(data)
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if string(got.Content) != "hello\n" || got.Resize != nil {
		t.Fatalf("mismatch: got %+v", got)
	}

	resize := &TerminalInput{Resize: &TerminalResize{Cols: 120, Rows: 40}}
	data = EncodeTerminalInput(resize)
	got, err = DecodeTerminalInput(data)
	if err != nil {
		t.Fatalf("decode resize: %v", err)
	}
	if got.Resize == nil || *got.Resize != *resize.Resize {
		t.Fatalf("mismatch: want %+v got %+v", resize.Resize, got.Resize)
	}
}

func TestTerminalOutputRoundTrip(t *testing.T) {
	data := EncodeTerminalOutput(&TerminalOutput{Content: []byte("spawned\n")})
	got, err := DecodeTerminalOutput(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.Content) != "spawned\n" {
		t.Fatalf("mismatch: got %q", got.Content)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	client, serverSide := net.Pipe()
	defer client.Close()
	defer serverSide.Close()

	payload := []byte("some request bytes")
	done := make(chan error, 1)
	go func() {
		done <- writeFrame(client, payload)
	}()

	got, err := readFrame(serverSide)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("mismatch: want %q got %q", payload, got)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ports := portpool.New(30000, 30100)
	javaRT := javaruntime.New(t.TempDir())
	catalog := providers.NewRegistry(nil, nil)
	cache := providers.NewCache(t.TempDir())
	auto, err := autostart.Load(t.TempDir())
	if err != nil {
		t.Fatalf("autostart.Load: %v", err)
	}
	sup := supervisor.New(ports, javaRT, catalog, cache, auto, logger.New())
	socketPath := filepath.Join(t.TempDir(), "minecraftd.sock")
	return New(socketPath, sup, catalog, logger.New())
}

func TestServeDispatchesGetServerImplementations(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(ctx) }()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", s.socketPath)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data, err := EncodeRequest(&Request{GetServerImplementations: &GetServerImplementationsRequest{}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := writeFrame(conn, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	respData, err := readFrame(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	resp, err := DecodeResponse(respData)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.GetServerImplementations == nil || len(resp.GetServerImplementations.Implementations) != 0 {
		t.Fatalf("want empty implementation list, got %+v", resp.GetServerImplementations)
	}

	s.Stop()
	if err := <-serveErr; err != nil {
		t.Fatalf("Serve returned error after Stop: %v", err)
	}
	if _, err := os.Stat(s.socketPath); !os.IsNotExist(err) {
		t.Fatalf("want socket removed after Serve returns, stat err = %v", err)
	}
}

func TestServeRejectsRelativeServerDir(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Serve(ctx)
	defer s.Stop()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", s.socketPath)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	data, err := EncodeRequest(&Request{StartServer: &StartServerRequest{ServerDir: "relative/path"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := writeFrame(conn, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	respData, err := readFrame(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	resp, err := DecodeResponse(respData)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil {
		t.Fatalf("want an ErrorResponse for a relative server_dir, got %+v", resp)
	}
}
