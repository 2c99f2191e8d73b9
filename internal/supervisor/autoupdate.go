package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oriku/minecraftd/internal/manifest"
	"github.com/oriku/minecraftd/internal/providers"
	"github.com/oriku/minecraftd/internal/rcon"
)

const (
	waitForPlayersLogoutTimeout = time.Hour
	playerPollInterval          = 60 * time.Second
	preRestartNoticeMinutes     = 1
)

// autoUpdateSchedule is a 24h cadence; missed ticks (daemon was down) are
// not coalesced into a catch-up run, matching cron's own skip behavior.
const autoUpdateSchedule = "@every 24h"

// StartAutoUpdateWorker schedules the background update-check loop and
// returns a stop func. Call it once at daemon startup.
func (s *Supervisor) StartAutoUpdateWorker(ctx context.Context) func() {
	c := cron.New()
	_, err := c.AddFunc(autoUpdateSchedule, func() {
		if err := s.runAutoUpdatePass(ctx); err != nil {
			s.log.Error("supervisor: auto-update pass failed: %v", err)
		}
	})
	if err != nil {
		s.log.Error("supervisor: failed to schedule auto-update worker: %v", err)
		return func() {}
	}
	c.Start()
	return func() { <-c.Stop().Done() }
}

func (s *Supervisor) runAutoUpdatePass(ctx context.Context) error {
	s.mu.Lock()
	candidates := make([]*runningServer, 0, len(s.reg.servers))
	for _, srv := range s.reg.servers {
		if srv.manifest.AutoUpdate {
			candidates = append(candidates, srv)
		}
	}
	s.mu.Unlock()

	for _, srv := range candidates {
		srv := srv
		s.log.Debug("supervisor: checking for updates for server %s", srv.id)

		impl, ok := s.catalog.Implementation(srv.manifest.ServerImplementation)
		if !ok {
			continue
		}

		result, err := providers.IsNewerVersionAvailable(ctx, impl, srv.manifest.Version, srv.manifest.Build, true)
		if err != nil {
			s.log.Error("supervisor: check update for %s: %v", srv.id, err)
			continue
		}
		if !result.Found {
			continue
		}

		s.log.Debug("supervisor: new version available for %s: %s build %s", srv.id, result.Newer.Version, result.Newer.Build)
		go s.applyUpdate(ctx, srv, result.Newer)
	}

	return nil
}

func (s *Supervisor) applyUpdate(ctx context.Context, srv *runningServer, newer providers.VersionBuild) {
	loggedOut := make(chan struct{})
	go func() {
		defer close(loggedOut)
		ticker := time.NewTicker(playerPollInterval)
		defer ticker.Stop()
		for {
			if count := s.onlinePlayerCount(ctx, srv); count == 0 {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	select {
	case <-loggedOut:
	case <-time.After(waitForPlayersLogoutTimeout):
		s.tellraw(srv, fmt.Sprintf("=== SERVER RESTART ===\nServer will restart in %d minute(s) to apply updates.\nPlease log out to avoid interruption.", preRestartNoticeMinutes))
		time.Sleep(preRestartNoticeMinutes * time.Minute)
	}

	m := srv.manifest
	m.Version = newer.Version
	m.Build = newer.Build
	if err := m.Save(srv.serverDir); err != nil {
		s.log.Error("supervisor: persist updated manifest for %s: %v", srv.id, err)
		return
	}

	if err := s.Restart(ctx, srv.serverDir); err != nil {
		s.log.Error("supervisor: restart %s for update: %v", srv.id, err)
	}
}

// checkPendingUpdate implements the start sequence's pre-launch update
// check: if m.AutoUpdate is set, ask the provider for a newer pair and, if
// one exists, persist it into m before the caller launches. A check failure
// is logged and does not block the start — the server launches on its
// currently pinned version.
func (s *Supervisor) checkPendingUpdate(ctx context.Context, serverDir string, m *manifest.Manifest) {
	if !m.AutoUpdate {
		return
	}

	impl, ok := s.catalog.Implementation(m.ServerImplementation)
	if !ok {
		s.log.Error("supervisor: pre-start update check for %q: unknown server implementation %q", serverDir, m.ServerImplementation)
		return
	}

	result, err := providers.IsNewerVersionAvailable(ctx, impl, m.Version, m.Build, true)
	if err != nil {
		s.log.Error("supervisor: pre-start update check for %q: %v", serverDir, err)
		return
	}
	if !result.Found {
		return
	}

	s.log.Info("supervisor: updating %q to %s build %s before start", serverDir, result.Newer.Version, result.Newer.Build)
	m.Version = result.Newer.Version
	m.Build = result.Newer.Build
	if err := m.Save(serverDir); err != nil {
		s.log.Error("supervisor: persist pre-start update for %q: %v", serverDir, err)
	}
}

// UpdateServerResult reports whether UpdateServer found and applied a
// newer build.
type UpdateServerResult struct {
	Updated    bool
	OldVersion string
	OldBuild   string
	NewVersion string
	NewBuild   string
}

// UpdateServer checks serverDir's manifest against its catalog for a newer
// build (stable-only when stable is true) and, if one exists, persists it
// to the manifest and restarts the server if it is currently running.
func (s *Supervisor) UpdateServer(ctx context.Context, serverDir string, stable bool) (UpdateServerResult, error) {
	m, err := manifest.Load(serverDir)
	if err != nil {
		return UpdateServerResult{}, fmt.Errorf("supervisor: load manifest: %w", err)
	}

	impl, ok := s.catalog.Implementation(m.ServerImplementation)
	if !ok {
		return UpdateServerResult{}, fmt.Errorf("supervisor: unknown server implementation %q", m.ServerImplementation)
	}

	result, err := providers.IsNewerVersionAvailable(ctx, impl, m.Version, m.Build, stable)
	if err != nil {
		return UpdateServerResult{}, fmt.Errorf("supervisor: check for update: %w", err)
	}
	if !result.Found {
		return UpdateServerResult{Updated: false}, nil
	}

	oldVersion, oldBuild := m.Version, m.Build
	m.Version = result.Newer.Version
	m.Build = result.Newer.Build
	if err := m.Save(serverDir); err != nil {
		return UpdateServerResult{}, fmt.Errorf("supervisor: persist updated manifest: %w", err)
	}

	s.mu.Lock()
	running := s.reg.byServerDir(serverDir) != nil
	s.mu.Unlock()
	if running {
		if err := s.Restart(ctx, serverDir); err != nil {
			return UpdateServerResult{}, fmt.Errorf("supervisor: restart after update: %w", err)
		}
	}

	return UpdateServerResult{
		Updated:    true,
		OldVersion: oldVersion,
		OldBuild:   oldBuild,
		NewVersion: result.Newer.Version,
		NewBuild:   result.Newer.Build,
	}, nil
}

func (s *Supervisor) onlinePlayerCount(ctx context.Context, srv *runningServer) int {
	players := pingPlayers(ctx, srv.port.port())
	if players == nil {
		return 0
	}
	return players.Online
}

// tellraw sends a one-line server-restart notice via RCON. Best-effort: a
// failure here should not block the scheduled restart.
func (s *Supervisor) tellraw(srv *runningServer, message string) {
	client, err := rcon.Dial(fmt.Sprintf("127.0.0.1:%d", srv.rconPort.Port()), srv.rconPassword, 5*time.Second)
	if err != nil {
		s.log.Error("supervisor: tellraw to %s: %v", srv.id, err)
		return
	}
	defer client.Close()

	payload := fmt.Sprintf(`{"text":"","extra":[{"text":"%s","color":"red"},{"text":"\n%s"}]}`, "=== SERVER RESTART ===", message)
	if _, err := client.ExecuteCommand(fmt.Sprintf("tellraw @a %s", payload)); err != nil {
		s.log.Error("supervisor: tellraw to %s: %v", srv.id, err)
	}
}
</content>
