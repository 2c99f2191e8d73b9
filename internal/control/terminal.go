package control

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/oriku/minecraftd/internal/supervisor"
)

// handleTerminal runs once a connection has switched out of request/response
// framing: one goroutine decodes incoming TerminalInput frames into PTY
// writes/resizes, another encodes PTY output into outgoing TerminalOutput
// frames. It returns once both sides have finished, reporting whichever
// error occurred first.
func (s *Server) handleTerminal(conn net.Conn, reader *supervisor.TerminalReader, writer *supervisor.TerminalWriter) error {
	defer reader.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			data, err := readFrame(conn)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errs <- err
				}
				return
			}
			input, err := DecodeTerminalInput(data)
			if err != nil {
				errs <- err
				return
			}
			if input.Resize != nil {
				if err := writer.Resize(int(input.Resize.Cols), int(input.Resize.Rows)); err != nil {
					errs <- err
					return
				}
				continue
			}
			if err := writer.Write(input.Content); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			chunk, err := reader.Read()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errs <- err
				}
				return
			}
			if err := writeFrame(conn, EncodeTerminalOutput(&TerminalOutput{Content: chunk})); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
