package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oriku/minecraftd/internal/manifest"
)

// CreateServer lays out a new server directory: creates it, warms the
// server-jar cache for the requested version/build, provisions the default
// Java runtime for that build, and writes the manifest. It does not start
// the server.
func (s *Supervisor) CreateServer(ctx context.Context, name, serverDir, serverImplementation, version, build string, connType manifest.ConnectionType, hostname string) error {
	if connType == manifest.ConnectionProxy && hostname == "" {
		return fmt.Errorf("supervisor: hostname must be provided for proxy connection")
	}

	impl, ok := s.catalog.Implementation(serverImplementation)
	if !ok {
		return fmt.Errorf("supervisor: unknown server implementation %q", serverImplementation)
	}

	if err := os.MkdirAll(serverDir, 0o755); err != nil {
		return fmt.Errorf("supervisor: create server directory: %w", err)
	}

	if _, err := s.cache.GetServerJar(ctx, impl, version, build); err != nil {
		return fmt.Errorf("supervisor: prepare server jar: %w", err)
	}

	runtimeName, err := impl.DefaultJavaRuntime(ctx, version, build)
	if err != nil {
		return fmt.Errorf("supervisor: determine default java runtime: %w", err)
	}
	if err := s.javaRT.Prepare(ctx, runtimeName); err != nil {
		return fmt.Errorf("supervisor: prepare java runtime: %w", err)
	}

	m := manifest.Default(name)
	m.ServerImplementation = serverImplementation
	m.Version = version
	m.Build = build
	m.JavaRuntime = manifest.JavaRuntime{Type: manifest.JavaRuntimeMojang, Name: runtimeName}
	m.Command = []string{"${java}", "-jar", "${server_jar}", "nogui"}
	m.Connection = manifest.Connection{Type: connType, Hostname: hostname}

	if err := os.WriteFile(filepath.Join(serverDir, "eula.txt"), []byte("eula=true\n"), 0o644); err != nil {
		return fmt.Errorf("supervisor: write eula.txt: %w", err)
	}

	if err := m.Save(serverDir); err != nil {
		return fmt.Errorf("supervisor: save manifest: %w", err)
	}

	return nil
}
