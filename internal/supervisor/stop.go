package supervisor

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/oriku/minecraftd/internal/rcon"
)

// Stop gracefully stops the server at serverDir: sends RCON "stop", waits up
// to stopTimeout, then kills it if it hasn't exited. Also removes the
// directory from the auto-start set, if auto_start was enabled.
func (s *Supervisor) Stop(ctx context.Context, serverDir string) error {
	s.mu.Lock()
	srv := s.reg.byServerDir(serverDir)
	s.mu.Unlock()
	if srv == nil {
		return errNotRunning(serverDir)
	}

	if srv.manifest.AutoStart {
		s.log.Info("Removing server at %q from auto-start list", serverDir)
		s.autoStart.Remove(srv.serverDir)
	}

	return s.doStop(ctx, srv.id, false)
}

// Kill sends SIGKILL to the server at serverDir without attempting a
// graceful RCON stop first.
func (s *Supervisor) Kill(serverDir string) error {
	s.mu.Lock()
	srv := s.reg.byServerDir(serverDir)
	s.mu.Unlock()
	if srv == nil {
		return errNotRunning(serverDir)
	}
	return s.doKill(srv.id)
}

// WaitReady blocks until the server at serverDir reaches StatusReady, or
// returns an error if it stops (or was never running) first.
func (s *Supervisor) WaitReady(ctx context.Context, serverDir string) error {
	s.mu.Lock()
	srv := s.reg.byServerDir(serverDir)
	s.mu.Unlock()
	if srv == nil {
		return errNotRunning(serverDir)
	}
	return s.waitForStatus(ctx, srv.id, StatusReady)
}

// Shutdown stops every running server concurrently and waits for all of
// them to finish, for use during daemon shutdown.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.reg.servers))
	for id := range s.reg.servers {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	done := make(chan struct{}, len(ids))
	for _, id := range ids {
		id := id
		go func() {
			if err := s.doStop(ctx, id, false); err != nil {
				s.log.Error("supervisor: failed to stop server %s during shutdown: %v", id, err)
			}
			done <- struct{}{}
		}()
	}
	for range ids {
		<-done
	}
}

func (s *Supervisor) doStop(ctx context.Context, id uuid.UUID, restarting bool) error {
	s.mu.Lock()
	srv := s.reg.get(id)
	if srv == nil {
		s.mu.Unlock()
		return fmt.Errorf("supervisor: server is not running")
	}
	srv.status.Set(StatusValue{Status: StatusStopping, Restarting: restarting})
	rconPort := srv.rconPort.Port()
	rconPassword := srv.rconPassword
	s.mu.Unlock()

	if err := requestServerStop(ctx, rconPort, rconPassword); err != nil {
		s.log.Debug("supervisor: failed to request graceful stop of %s, killing: %v", id, err)
		if err := s.doKill(id); err != nil {
			return err
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	if err := s.waitForStatus(stopCtx, id, StatusStopped); err != nil {
		s.log.Error("supervisor: server %s did not stop within %s, killing", id, stopTimeout)
		return s.doKill(id)
	}
	return nil
}

func requestServerStop(ctx context.Context, rconPort int, rconPassword string) error {
	var lastErr error
	for attempt := 0; attempt <= requestStopRetryLimit; attempt++ {
		client, err := rcon.Dial(fmt.Sprintf("127.0.0.1:%d", rconPort), rconPassword, 5*time.Second)
		if err == nil {
			_, err = client.ExecuteCommand("stop")
			client.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err

		if attempt == requestStopRetryLimit {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(requestStopRetryInterval):
		}
	}
	return fmt.Errorf("supervisor: failed to send stop command after %d attempts: %w", requestStopRetryLimit+1, lastErr)
}

func (s *Supervisor) waitForStatus(ctx context.Context, id uuid.UUID, desired Status) error {
	s.mu.Lock()
	srv := s.reg.get(id)
	s.mu.Unlock()
	if srv == nil {
		return fmt.Errorf("supervisor: server is not running")
	}

	err := srv.status.WaitUntil(func(v StatusValue) bool { return v.Status == desired }, ctx.Done())
	if desired == StatusStopped {
		return nil
	}
	return err
}

func (s *Supervisor) doKill(id uuid.UUID) error {
	s.mu.Lock()
	srv := s.reg.get(id)
	s.mu.Unlock()
	if srv == nil {
		return fmt.Errorf("supervisor: server is not running")
	}
	if err := syscall.Kill(srv.pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("supervisor: kill pid %d: %w", srv.pid, err)
	}
	return nil
}
</content>
