package supervisor

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/creack/pty"
)

// terminalHub fans PTY output out to every attached reader and serializes
// writes (input and resizes) back into the PTY. The PTY master end (ptmx)
// is an *os.File, as returned by pty.StartWithSize.
type terminalHub struct {
	ptmx *os.File

	writeMu sync.Mutex

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]chan []byte
	closed    bool
}

func newTerminalHub(f *os.File) *terminalHub {
	h := &terminalHub{
		ptmx:      f,
		listeners: make(map[uint64]chan []byte),
	}
	go h.readLoop()
	return h
}

func (h *terminalHub) readLoop() {
	buf := make([]byte, terminalBufferSize)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			h.broadcast(chunk)
		}
		if err != nil {
			h.close()
			return
		}
	}
}

func (h *terminalHub) broadcast(chunk []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- chunk:
		default:
			// slow reader: drop rather than block the PTY reader loop
		}
	}
}

func (h *terminalHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.listeners {
		close(ch)
	}
}

// Write sends input to the PTY's slave end, chunked the same size the
// original terminal buffer used.
func (h *terminalHub) Write(data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for offset := 0; offset < len(data); {
		end := offset + terminalBufferSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := h.ptmx.Write(data[offset:end]); err != nil {
			return fmt.Errorf("supervisor: write to terminal: %w", err)
		}
		offset = end
	}
	return nil
}

// Resize changes the PTY window size.
func (h *terminalHub) Resize(cols, rows int) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := pty.Setsize(h.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		return fmt.Errorf("supervisor: resize terminal: %w", err)
	}
	return nil
}

// Subscribe returns a channel of output chunks and an unsubscribe func. The
// channel is closed when the underlying process exits.
func (h *terminalHub) Subscribe() (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan []byte, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.listeners[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.listeners[id]; ok {
			delete(h.listeners, id)
			close(existing)
		}
	}
}

// TerminalReader is attached to a running server's PTY output stream.
type TerminalReader struct {
	ch          <-chan []byte
	unsubscribe func()
}

// Read returns the next output chunk, or io.EOF once the process has exited.
func (r *TerminalReader) Read() ([]byte, error) {
	chunk, ok := <-r.ch
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

// Close detaches this reader from the hub.
func (r *TerminalReader) Close() {
	r.unsubscribe()
}

// TerminalWriter sends input and resize requests to a running server's PTY.
type TerminalWriter struct {
	hub *terminalHub
}

// Write forwards content to the PTY.
func (w *TerminalWriter) Write(content []byte) error {
	return w.hub.Write(content)
}

// Resize changes the PTY window size.
func (w *TerminalWriter) Resize(cols, rows int) error {
	return w.hub.Resize(cols, rows)
}

// AttachTerminal returns a reader/writer pair hooked to a running server's
// PTY. Returns an error if serverDir names no running server.
func (s *Supervisor) AttachTerminal(serverDir string) (*TerminalReader, *TerminalWriter, error) {
	s.mu.Lock()
	srv := s.reg.byServerDir(serverDir)
	s.mu.Unlock()
	if srv == nil {
		return nil, nil, errNotRunning(serverDir)
	}

	ch, unsubscribe := srv.terminal.Subscribe()
	return &TerminalReader{ch: ch, unsubscribe: unsubscribe}, &TerminalWriter{hub: srv.terminal}, nil
}
</content>
