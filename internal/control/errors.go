package control

import "errors"

// ErrProtocol marks malformed control-plane input: a request with no
// recognized payload, a truncated frame, or a terminal frame with neither
// variant set. The connection stays open; the caller reports it as an
// ErrorResponse rather than closing the socket.
var ErrProtocol = errors.New("control: protocol error")
