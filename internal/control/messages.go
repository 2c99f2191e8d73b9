package control

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the Request oneof. Values are arbitrary but fixed: both
// ends of the control socket are this same package.
const (
	tagGetServerImplementationsRequest protowire.Number = 1
	tagGetVersionsRequest              protowire.Number = 2
	tagGetBuildsRequest                protowire.Number = 3
	tagCreateServerRequest             protowire.Number = 4
	tagStartServerRequest              protowire.Number = 5
	tagStopServerRequest               protowire.Number = 6
	tagKillServerRequest               protowire.Number = 7
	tagRestartServerRequest            protowire.Number = 8
	tagWaitServerReadyRequest          protowire.Number = 9
	tagAttachTerminalRequest           protowire.Number = 10
	tagGetRunningServersRequest        protowire.Number = 11
	tagUpdateServerRequest             protowire.Number = 12
	tagGetExtensionProvidersRequest    protowire.Number = 13
	tagSearchExtensionRequest          protowire.Number = 14
	tagGetExtensionVersionsRequest     protowire.Number = 15
	tagAddExtensionRequest             protowire.Number = 16
	tagResolveExtensionURLRequest      protowire.Number = 17
)

// Field numbers for the Response oneof.
const (
	tagErrorResponse                    protowire.Number = 1
	tagGetServerImplementationsResponse protowire.Number = 2
	tagGetVersionsResponse              protowire.Number = 3
	tagGetBuildsResponse                protowire.Number = 4
	tagGetRunningServersResponse        protowire.Number = 5
	tagUpdateServerResponse             protowire.Number = 6
	tagGetExtensionProvidersResponse    protowire.Number = 7
	tagSearchExtensionResponse          protowire.Number = 8
	tagGetExtensionVersionsResponse     protowire.Number = 9
	tagResolveExtensionURLResponse      protowire.Number = 10
)

// ConnectionType mirrors manifest.ConnectionType on the wire as a small
// integer (0 = direct, 1 = proxy).
type ConnectionType int32

const (
	ConnectionDirect ConnectionType = 0
	ConnectionProxy  ConnectionType = 1
)

// ExtensionType mirrors manifest.ExtensionType on the wire (0 = mod, 1 = plugin).
type ExtensionType int32

const (
	ExtensionMod    ExtensionType = 0
	ExtensionPlugin ExtensionType = 1
)

func (t ExtensionType) String() string {
	if t == ExtensionPlugin {
		return "plugin"
	}
	return "mod"
}

// UpdateType selects whether UpdateServer considers pre-release builds.
type UpdateType int32

const (
	UpdateStable UpdateType = 0
	UpdateLatest UpdateType = 1
)

// Request is the tagged union of every request the control socket accepts.
// Exactly one field is non-nil.
type Request struct {
	GetServerImplementations *GetServerImplementationsRequest
	GetVersions              *GetVersionsRequest
	GetBuilds                *GetBuildsRequest
	CreateServer             *CreateServerRequest
	StartServer              *StartServerRequest
	StopServer               *StopServerRequest
	KillServer               *KillServerRequest
	RestartServer            *RestartServerRequest
	WaitServerReady          *WaitServerReadyRequest
	AttachTerminal           *AttachTerminalRequest
	GetRunningServers        *GetRunningServersRequest
	UpdateServer             *UpdateServerRequest
	GetExtensionProviders    *GetExtensionProvidersRequest
	SearchExtension          *SearchExtensionRequest
	GetExtensionVersions     *GetExtensionVersionsRequest
	AddExtension             *AddExtensionRequest
	ResolveExtensionURL      *ResolveExtensionURLRequest
}

type GetServerImplementationsRequest struct{}

type GetVersionsRequest struct {
	ServerImplementation string
}

type GetBuildsRequest struct {
	ServerImplementation string
	Version              string
}

type CreateServerRequest struct {
	Name                 string
	ServerDir            string
	ServerImplementation string
	Version              string
	Build                string
	Connection           ConnectionType
	Hostname             string
}

type StartServerRequest struct{ ServerDir string }
type StopServerRequest struct{ ServerDir string }
type KillServerRequest struct{ ServerDir string }
type RestartServerRequest struct{ ServerDir string }
type WaitServerReadyRequest struct{ ServerDir string }
type AttachTerminalRequest struct{ ServerDir string }
type GetRunningServersRequest struct{}

type UpdateServerRequest struct {
	ServerDir  string
	UpdateType UpdateType
}

type GetExtensionProvidersRequest struct{}

type SearchExtensionRequest struct {
	Provider      string
	ExtensionType ExtensionType
	ServerVersion string
	Query         string
}

type GetExtensionVersionsRequest struct {
	Provider      string
	ExtensionType ExtensionType
	ServerVersion string
	ExtensionID   string
}

type AddExtensionRequest struct {
	ServerDir     string
	Provider      string
	ExtensionType ExtensionType
	ExtensionID   string
	VersionID     string
	AutoUpdate    bool
}

type ResolveExtensionURLRequest struct{ URL string }

// EncodeRequest serializes req for the wire.
func EncodeRequest(req *Request) ([]byte, error) {
	var b []byte
	switch {
	case req.GetServerImplementations != nil:
		b = appendMessage(b, tagGetServerImplementationsRequest, nil)
	case req.GetVersions != nil:
		b = appendMessage(b, tagGetVersionsRequest, encodeGetVersionsRequest(req.GetVersions))
	case req.GetBuilds != nil:
		b = appendMessage(b, tagGetBuildsRequest, encodeGetBuildsRequest(req.GetBuilds))
	case req.CreateServer != nil:
		b = appendMessage(b, tagCreateServerRequest, encodeCreateServerRequest(req.CreateServer))
	case req.StartServer != nil:
		b = appendMessage(b, tagStartServerRequest, encodeServerDirOnly(req.StartServer.ServerDir))
	case req.StopServer != nil:
		b = appendMessage(b, tagStopServerRequest, encodeServerDirOnly(req.StopServer.ServerDir))
	case req.KillServer != nil:
		b = appendMessage(b, tagKillServerRequest, encodeServerDirOnly(req.KillServer.ServerDir))
	case req.RestartServer != nil:
		b = appendMessage(b, tagRestartServerRequest, encodeServerDirOnly(req.RestartServer.ServerDir))
	case req.WaitServerReady != nil:
		b = appendMessage(b, tagWaitServerReadyRequest, encodeServerDirOnly(req.WaitServerReady.ServerDir))
	case req.AttachTerminal != nil:
		b = appendMessage(b, tagAttachTerminalRequest, encodeServerDirOnly(req.AttachTerminal.ServerDir))
	case req.GetRunningServers != nil:
		b = appendMessage(b, tagGetRunningServersRequest, nil)
	case req.UpdateServer != nil:
		b = appendMessage(b, tagUpdateServerRequest, encodeUpdateServerRequest(req.UpdateServer))
	case req.GetExtensionProviders != nil:
		b = appendMessage(b, tagGetExtensionProvidersRequest, nil)
	case req.SearchExtension != nil:
		b = appendMessage(b, tagSearchExtensionRequest, encodeSearchExtensionRequest(req.SearchExtension))
	case req.GetExtensionVersions != nil:
		b = appendMessage(b, tagGetExtensionVersionsRequest, encodeGetExtensionVersionsRequest(req.GetExtensionVersions))
	case req.AddExtension != nil:
		b = appendMessage(b, tagAddExtensionRequest, encodeAddExtensionRequest(req.AddExtension))
	case req.ResolveExtensionURL != nil:
		b = appendMessage(b, tagResolveExtensionURLRequest, encodeServerDirOnly(req.ResolveExtensionURL.URL))
	default:
		return nil, fmt.Errorf("control: empty request")
	}
	return b, nil
}

// DecodeRequest parses a wire-format Request, failing with ErrProtocol if no
// variant is present.
func DecodeRequest(data []byte) (*Request, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}

	for _, f := range fields {
		if f.typ != protowire.BytesType {
			continue
		}
		switch f.num {
		case tagGetServerImplementationsRequest:
			return &Request{GetServerImplementations: &GetServerImplementationsRequest{}}, nil
		case tagGetVersionsRequest:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			impl, _ := firstString(sub, 1)
			return &Request{GetVersions: &GetVersionsRequest{ServerImplementation: impl}}, nil
		case tagGetBuildsRequest:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			impl, _ := firstString(sub, 1)
			version, _ := firstString(sub, 2)
			return &Request{GetBuilds: &GetBuildsRequest{ServerImplementation: impl, Version: version}}, nil
		case tagCreateServerRequest:
			r, err := decodeCreateServerRequest(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Request{CreateServer: r}, nil
		case tagStartServerRequest:
			return &Request{StartServer: &StartServerRequest{ServerDir: decodeServerDirOnly(f.bytes)}}, nil
		case tagStopServerRequest:
			return &Request{StopServer: &StopServerRequest{ServerDir: decodeServerDirOnly(f.bytes)}}, nil
		case tagKillServerRequest:
			return &Request{KillServer: &KillServerRequest{ServerDir: decodeServerDirOnly(f.bytes)}}, nil
		case tagRestartServerRequest:
			return &Request{RestartServer: &RestartServerRequest{ServerDir: decodeServerDirOnly(f.bytes)}}, nil
		case tagWaitServerReadyRequest:
			return &Request{WaitServerReady: &WaitServerReadyRequest{ServerDir: decodeServerDirOnly(f.bytes)}}, nil
		case tagAttachTerminalRequest:
			return &Request{AttachTerminal: &AttachTerminalRequest{ServerDir: decodeServerDirOnly(f.bytes)}}, nil
		case tagGetRunningServersRequest:
			return &Request{GetRunningServers: &GetRunningServersRequest{}}, nil
		case tagUpdateServerRequest:
			r, err := decodeUpdateServerRequest(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Request{UpdateServer: r}, nil
		case tagGetExtensionProvidersRequest:
			return &Request{GetExtensionProviders: &GetExtensionProvidersRequest{}}, nil
		case tagSearchExtensionRequest:
			r, err := decodeSearchExtensionRequest(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Request{SearchExtension: r}, nil
		case tagGetExtensionVersionsRequest:
			r, err := decodeGetExtensionVersionsRequest(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Request{GetExtensionVersions: r}, nil
		case tagAddExtensionRequest:
			r, err := decodeAddExtensionRequest(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Request{AddExtension: r}, nil
		case tagResolveExtensionURLRequest:
			return &Request{ResolveExtensionURL: &ResolveExtensionURLRequest{URL: decodeServerDirOnly(f.bytes)}}, nil
		}
	}

	return nil, ErrProtocol
}

func encodeServerDirOnly(s string) []byte {
	return appendString(nil, 1, s)
}

func decodeServerDirOnly(b []byte) string {
	fields, err := parseFields(b)
	if err != nil {
		return ""
	}
	s, _ := firstString(fields, 1)
	return s
}

func encodeGetVersionsRequest(r *GetVersionsRequest) []byte {
	return appendString(nil, 1, r.ServerImplementation)
}

func encodeGetBuildsRequest(r *GetBuildsRequest) []byte {
	b := appendString(nil, 1, r.ServerImplementation)
	return appendString(b, 2, r.Version)
}

func encodeCreateServerRequest(r *CreateServerRequest) []byte {
	b := appendString(nil, 1, r.Name)
	b = appendString(b, 2, r.ServerDir)
	b = appendString(b, 3, r.ServerImplementation)
	b = appendString(b, 4, r.Version)
	b = appendString(b, 5, r.Build)
	b = appendInt32(b, 6, int32(r.Connection))
	b = appendString(b, 7, r.Hostname)
	return b
}

func decodeCreateServerRequest(data []byte) (*CreateServerRequest, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	name, _ := firstString(fields, 1)
	serverDir, _ := firstString(fields, 2)
	impl, _ := firstString(fields, 3)
	version, _ := firstString(fields, 4)
	build, _ := firstString(fields, 5)
	conn, _ := firstInt32(fields, 6)
	hostname, _ := firstString(fields, 7)
	return &CreateServerRequest{
		Name:                 name,
		ServerDir:            serverDir,
		ServerImplementation: impl,
		Version:              version,
		Build:                build,
		Connection:           ConnectionType(conn),
		Hostname:             hostname,
	}, nil
}

func encodeUpdateServerRequest(r *UpdateServerRequest) []byte {
	b := appendString(nil, 1, r.ServerDir)
	return appendInt32(b, 2, int32(r.UpdateType))
}

func decodeUpdateServerRequest(data []byte) (*UpdateServerRequest, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	serverDir, _ := firstString(fields, 1)
	updateType, _ := firstInt32(fields, 2)
	return &UpdateServerRequest{ServerDir: serverDir, UpdateType: UpdateType(updateType)}, nil
}

func encodeSearchExtensionRequest(r *SearchExtensionRequest) []byte {
	b := appendString(nil, 1, r.Provider)
	b = appendInt32(b, 2, int32(r.ExtensionType))
	b = appendString(b, 3, r.ServerVersion)
	return appendString(b, 4, r.Query)
}

func decodeSearchExtensionRequest(data []byte) (*SearchExtensionRequest, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	provider, _ := firstString(fields, 1)
	extType, _ := firstInt32(fields, 2)
	serverVersion, _ := firstString(fields, 3)
	query, _ := firstString(fields, 4)
	return &SearchExtensionRequest{
		Provider:      provider,
		ExtensionType: ExtensionType(extType),
		ServerVersion: serverVersion,
		Query:         query,
	}, nil
}

func encodeGetExtensionVersionsRequest(r *GetExtensionVersionsRequest) []byte {
	b := appendString(nil, 1, r.Provider)
	b = appendInt32(b, 2, int32(r.ExtensionType))
	b = appendString(b, 3, r.ServerVersion)
	return appendString(b, 4, r.ExtensionID)
}

func decodeGetExtensionVersionsRequest(data []byte) (*GetExtensionVersionsRequest, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	provider, _ := firstString(fields, 1)
	extType, _ := firstInt32(fields, 2)
	serverVersion, _ := firstString(fields, 3)
	extensionID, _ := firstString(fields, 4)
	return &GetExtensionVersionsRequest{
		Provider:      provider,
		ExtensionType: ExtensionType(extType),
		ServerVersion: serverVersion,
		ExtensionID:   extensionID,
	}, nil
}

func encodeAddExtensionRequest(r *AddExtensionRequest) []byte {
	b := appendString(nil, 1, r.ServerDir)
	b = appendString(b, 2, r.Provider)
	b = appendInt32(b, 3, int32(r.ExtensionType))
	b = appendString(b, 4, r.ExtensionID)
	b = appendString(b, 5, r.VersionID)
	return appendBool(b, 6, r.AutoUpdate)
}

func decodeAddExtensionRequest(data []byte) (*AddExtensionRequest, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	serverDir, _ := firstString(fields, 1)
	provider, _ := firstString(fields, 2)
	extType, _ := firstInt32(fields, 3)
	extensionID, _ := firstString(fields, 4)
	versionID, _ := firstString(fields, 5)
	autoUpdate := firstBool(fields, 6)
	return &AddExtensionRequest{
		ServerDir:     serverDir,
		Provider:      provider,
		ExtensionType: ExtensionType(extType),
		ExtensionID:   extensionID,
		VersionID:     versionID,
		AutoUpdate:    autoUpdate,
	}, nil
}

// --- Responses ---

// Response is the tagged union of every response the control socket sends.
// A Response with every field nil is a bare success acknowledgement.
type Response struct {
	Error                     *ErrorResponse
	GetServerImplementations  *GetServerImplementationsResponse
	GetVersions               *GetVersionsResponse
	GetBuilds                 *GetBuildsResponse
	GetRunningServers         *GetRunningServersResponse
	UpdateServer              *UpdateServerResponse
	GetExtensionProviders     *GetExtensionProvidersResponse
	SearchExtension           *SearchExtensionResponse
	GetExtensionVersions      *GetExtensionVersionsResponse
	ResolveExtensionURL       *ResolveExtensionURLResponse
}

type ErrorResponse struct{ Message string }

type GetServerImplementationsResponse struct{ Implementations []string }
type GetVersionsResponse struct{ Versions []string }

type Build struct {
	Build  string
	Stable bool
}
type GetBuildsResponse struct{ Builds []Build }

type RunningServerInfo struct {
	ServerDir      string
	Name           string
	Status         string
	ServerPort     int32
	HasPlayers     bool
	PlayersOnline  int32
	PlayersMax     int32
	UptimeSeconds  int64
}
type GetRunningServersResponse struct{ Servers []RunningServerInfo }

type UpdateServerResponse struct {
	Updated    bool
	OldVersion string
	OldBuild   string
	NewVersion string
	NewBuild   string
}

type GetExtensionProvidersResponse struct{ Providers []string }

type ExtensionInfo struct {
	ID   string
	Type string
	Name string
}
type SearchExtensionResponse struct{ Extensions []ExtensionInfo }

type ExtensionVersionInfo struct {
	ID       string
	Version  string
	IsStable bool
}
type GetExtensionVersionsResponse struct{ Versions []ExtensionVersionInfo }

type ResolveExtensionURLResponse struct {
	Found         bool
	Provider      string
	ExtensionType string
	ID            string
}

// EncodeResponse serializes resp for the wire. A zero-value Response
// encodes to zero bytes: an empty-payload success acknowledgement.
func EncodeResponse(resp *Response) []byte {
	var b []byte
	switch {
	case resp.Error != nil:
		b = appendMessage(b, tagErrorResponse, appendString(nil, 1, resp.Error.Message))
	case resp.GetServerImplementations != nil:
		var sub []byte
		for _, s := range resp.GetServerImplementations.Implementations {
			sub = appendString(sub, 1, s)
		}
		b = appendMessage(b, tagGetServerImplementationsResponse, sub)
	case resp.GetVersions != nil:
		var sub []byte
		for _, s := range resp.GetVersions.Versions {
			sub = appendString(sub, 1, s)
		}
		b = appendMessage(b, tagGetVersionsResponse, sub)
	case resp.GetBuilds != nil:
		var sub []byte
		for _, build := range resp.GetBuilds.Builds {
			var bb []byte
			bb = appendString(bb, 1, build.Build)
			bb = appendBool(bb, 2, build.Stable)
			sub = appendMessage(sub, 1, bb)
		}
		b = appendMessage(b, tagGetBuildsResponse, sub)
	case resp.GetRunningServers != nil:
		var sub []byte
		for _, srv := range resp.GetRunningServers.Servers {
			var sb []byte
			sb = appendString(sb, 1, srv.ServerDir)
			sb = appendString(sb, 2, srv.Name)
			sb = appendString(sb, 3, srv.Status)
			sb = appendInt32(sb, 4, srv.ServerPort)
			sb = appendBool(sb, 5, srv.HasPlayers)
			sb = appendInt32(sb, 6, srv.PlayersOnline)
			sb = appendInt32(sb, 7, srv.PlayersMax)
			sb = appendVarint(sb, 8, uint64(srv.UptimeSeconds))
			sub = appendMessage(sub, 1, sb)
		}
		b = appendMessage(b, tagGetRunningServersResponse, sub)
	case resp.UpdateServer != nil:
		u := resp.UpdateServer
		var sub []byte
		sub = appendBool(sub, 1, u.Updated)
		sub = appendString(sub, 2, u.OldVersion)
		sub = appendString(sub, 3, u.OldBuild)
		sub = appendString(sub, 4, u.NewVersion)
		sub = appendString(sub, 5, u.NewBuild)
		b = appendMessage(b, tagUpdateServerResponse, sub)
	case resp.GetExtensionProviders != nil:
		var sub []byte
		for _, s := range resp.GetExtensionProviders.Providers {
			sub = appendString(sub, 1, s)
		}
		b = appendMessage(b, tagGetExtensionProvidersResponse, sub)
	case resp.SearchExtension != nil:
		var sub []byte
		for _, e := range resp.SearchExtension.Extensions {
			var eb []byte
			eb = appendString(eb, 1, e.ID)
			eb = appendString(eb, 2, e.Type)
			eb = appendString(eb, 3, e.Name)
			sub = appendMessage(sub, 1, eb)
		}
		b = appendMessage(b, tagSearchExtensionResponse, sub)
	case resp.GetExtensionVersions != nil:
		var sub []byte
		for _, v := range resp.GetExtensionVersions.Versions {
			var vb []byte
			vb = appendString(vb, 1, v.ID)
			vb = appendString(vb, 2, v.Version)
			vb = appendBool(vb, 3, v.IsStable)
			sub = appendMessage(sub, 1, vb)
		}
		b = appendMessage(b, tagGetExtensionVersionsResponse, sub)
	case resp.ResolveExtensionURL != nil:
		r := resp.ResolveExtensionURL
		var sub []byte
		sub = appendBool(sub, 1, r.Found)
		sub = appendString(sub, 2, r.Provider)
		sub = appendString(sub, 3, r.ExtensionType)
		sub = appendString(sub, 4, r.ID)
		b = appendMessage(b, tagResolveExtensionURLResponse, sub)
	default:
		return nil
	}
	return b
}

// DecodeResponse parses a wire-format Response. Zero-length data decodes to
// an empty-payload success Response.
func DecodeResponse(data []byte) (*Response, error) {
	if len(data) == 0 {
		return &Response{}, nil
	}

	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}

	for _, f := range fields {
		if f.typ != protowire.BytesType {
			continue
		}
		switch f.num {
		case tagErrorResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			msg, _ := firstString(sub, 1)
			return &Response{Error: &ErrorResponse{Message: msg}}, nil
		case tagGetServerImplementationsResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Response{GetServerImplementations: &GetServerImplementationsResponse{Implementations: allStrings(sub, 1)}}, nil
		case tagGetVersionsResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Response{GetVersions: &GetVersionsResponse{Versions: allStrings(sub, 1)}}, nil
		case tagGetBuildsResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			var builds []Build
			for _, msg := range allMessages(sub, 1) {
				bf, err := parseFields(msg)
				if err != nil {
					return nil, err
				}
				build, _ := firstString(bf, 1)
				builds = append(builds, Build{Build: build, Stable: firstBool(bf, 2)})
			}
			return &Response{GetBuilds: &GetBuildsResponse{Builds: builds}}, nil
		case tagGetRunningServersResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			var servers []RunningServerInfo
			for _, msg := range allMessages(sub, 1) {
				sf, err := parseFields(msg)
				if err != nil {
					return nil, err
				}
				serverDir, _ := firstString(sf, 1)
				name, _ := firstString(sf, 2)
				status, _ := firstString(sf, 3)
				port, _ := firstInt32(sf, 4)
				playersOnline, _ := firstInt32(sf, 6)
				playersMax, _ := firstInt32(sf, 7)
				uptime, _ := firstVarint(sf, 8)
				servers = append(servers, RunningServerInfo{
					ServerDir:     serverDir,
					Name:          name,
					Status:        status,
					ServerPort:    port,
					HasPlayers:    firstBool(sf, 5),
					PlayersOnline: playersOnline,
					PlayersMax:    playersMax,
					UptimeSeconds: int64(uptime),
				})
			}
			return &Response{GetRunningServers: &GetRunningServersResponse{Servers: servers}}, nil
		case tagUpdateServerResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			oldVersion, _ := firstString(sub, 2)
			oldBuild, _ := firstString(sub, 3)
			newVersion, _ := firstString(sub, 4)
			newBuild, _ := firstString(sub, 5)
			return &Response{UpdateServer: &UpdateServerResponse{
				Updated:    firstBool(sub, 1),
				OldVersion: oldVersion,
				OldBuild:   oldBuild,
				NewVersion: newVersion,
				NewBuild:   newBuild,
			}}, nil
		case tagGetExtensionProvidersResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			return &Response{GetExtensionProviders: &GetExtensionProvidersResponse{Providers: allStrings(sub, 1)}}, nil
		case tagSearchExtensionResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			var exts []ExtensionInfo
			for _, msg := range allMessages(sub, 1) {
				ef, err := parseFields(msg)
				if err != nil {
					return nil, err
				}
				id, _ := firstString(ef, 1)
				typ, _ := firstString(ef, 2)
				name, _ := firstString(ef, 3)
				exts = append(exts, ExtensionInfo{ID: id, Type: typ, Name: name})
			}
			return &Response{SearchExtension: &SearchExtensionResponse{Extensions: exts}}, nil
		case tagGetExtensionVersionsResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			var versions []ExtensionVersionInfo
			for _, msg := range allMessages(sub, 1) {
				vf, err := parseFields(msg)
				if err != nil {
					return nil, err
				}
				id, _ := firstString(vf, 1)
				version, _ := firstString(vf, 2)
				versions = append(versions, ExtensionVersionInfo{ID: id, Version: version, IsStable: firstBool(vf, 3)})
			}
			return &Response{GetExtensionVersions: &GetExtensionVersionsResponse{Versions: versions}}, nil
		case tagResolveExtensionURLResponse:
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			provider, _ := firstString(sub, 2)
			extType, _ := firstString(sub, 3)
			id, _ := firstString(sub, 4)
			return &Response{ResolveExtensionURL: &ResolveExtensionURLResponse{
				Found:         firstBool(sub, 1),
				Provider:      provider,
				ExtensionType: extType,
				ID:            id,
			}}, nil
		}
	}

	return &Response{}, nil
}

// --- Terminal sub-protocol ---
//
// After a successful AttachTerminalRequest, the connection permanently
// switches from Request/Response framing to TerminalInput/TerminalOutput
// framing, using the same [u32 big-endian length][protobuf bytes] envelope.

const (
	tagTerminalInputContent protowire.Number = 1
	tagTerminalInputResize  protowire.Number = 2
)

// TerminalResize is the Resize variant of TerminalInput.
type TerminalResize struct {
	Cols int32
	Rows int32
}

// TerminalInput is a tagged union: exactly one of Content or Resize is set.
type TerminalInput struct {
	Content []byte
	Resize  *TerminalResize
}

// EncodeTerminalInput serializes in for the wire.
func EncodeTerminalInput(in *TerminalInput) []byte {
	if in.Resize != nil {
		var sub []byte
		sub = appendInt32(sub, 1, in.Resize.Cols)
		sub = appendInt32(sub, 2, in.Resize.Rows)
		return appendMessage(nil, tagTerminalInputResize, sub)
	}
	return appendBytes(nil, tagTerminalInputContent, in.Content)
}

// DecodeTerminalInput parses a wire-format TerminalInput.
func DecodeTerminalInput(data []byte) (*TerminalInput, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	if content, ok := firstBytes(fields, tagTerminalInputContent); ok {
		return &TerminalInput{Content: content}, nil
	}
	if sub, ok := firstBytes(fields, tagTerminalInputResize); ok {
		sf, err := parseFields(sub)
		if err != nil {
			return nil, err
		}
		cols, _ := firstInt32(sf, 1)
		rows, _ := firstInt32(sf, 2)
		return &TerminalInput{Resize: &TerminalResize{Cols: cols, Rows: rows}}, nil
	}
	return nil, ErrProtocol
}

// TerminalOutput carries one chunk of PTY output.
type TerminalOutput struct {
	Content []byte
}

// EncodeTerminalOutput serializes out for the wire.
func EncodeTerminalOutput(out *TerminalOutput) []byte {
	return appendBytes(nil, 1, out.Content)
}

// DecodeTerminalOutput parses a wire-format TerminalOutput.
func DecodeTerminalOutput(data []byte) (*TerminalOutput, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}
	content, _ := firstBytes(fields, 1)
	return &TerminalOutput{Content: content}, nil
}
