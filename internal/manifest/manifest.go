// Package manifest defines the per-server minecraftd.yaml manifest: identity,
// launch command, Java runtime selector, lifecycle flags, connection mode,
// and the extension list.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest filename inside a server directory.
const FileName = "minecraftd.yaml"

// JavaRuntimeType tags which JavaRuntime variant is in effect.
type JavaRuntimeType string

const (
	JavaRuntimeMojang JavaRuntimeType = "mojang"
	JavaRuntimeCustom JavaRuntimeType = "custom"
)

// JavaRuntime selects either a named Mojang-provisioned runtime or a
// caller-supplied java_home.
type JavaRuntime struct {
	Type     JavaRuntimeType `yaml:"type"`
	Name     string          `yaml:"name,omitempty"`
	JavaHome string          `yaml:"java_home,omitempty"`
}

// ConnectionType tags which Connection variant is in effect.
type ConnectionType string

const (
	ConnectionDirect ConnectionType = "direct"
	ConnectionProxy  ConnectionType = "proxy"
)

// Connection selects whether player traffic reaches the server directly on
// its configured port, or through the daemon's reverse proxy under a
// virtual hostname.
type Connection struct {
	Type     ConnectionType `yaml:"type"`
	Hostname string         `yaml:"hostname,omitempty"`
}

// ExtensionType distinguishes a mod from a plugin.
type ExtensionType string

const (
	ExtensionMod    ExtensionType = "mod"
	ExtensionPlugin ExtensionType = "plugin"
)

// Extension is one manifest-declared mod or plugin to keep symlinked into
// the server directory.
type Extension struct {
	Name       string        `yaml:"name"`
	Type       ExtensionType `yaml:"type"`
	Provider   string        `yaml:"provider"`
	ID         string        `yaml:"id"`
	VersionID  string        `yaml:"version_id"`
	AutoUpdate bool          `yaml:"auto_update"`
}

// Manifest is the full contents of minecraftd.yaml.
type Manifest struct {
	Name                 string      `yaml:"name"`
	ServerImplementation string      `yaml:"server_implementation"`
	Version              string      `yaml:"version"`
	Build                string      `yaml:"build"`
	Command              []string    `yaml:"command"`
	JavaRuntime          JavaRuntime `yaml:"java_runtime"`
	RestartOnFailure     bool        `yaml:"restart_on_failure"`
	AutoStart            bool        `yaml:"auto_start"`
	AutoUpdate           bool        `yaml:"auto_update"`
	Connection           Connection  `yaml:"connection"`
	Extensions           []Extension `yaml:"extensions,omitempty"`
}

// Default returns a manifest with the documented field defaults: direct
// connection, every lifecycle flag false.
func Default(name string) *Manifest {
	return &Manifest{
		Name:       name,
		Connection: Connection{Type: ConnectionDirect},
	}
}

// Path returns the manifest path for a server directory.
func Path(serverDir string) string {
	return filepath.Join(serverDir, FileName)
}

// Load reads and parses the manifest at <serverDir>/minecraftd.yaml.
func Load(serverDir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(serverDir))
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", serverDir, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", serverDir, err)
	}

	if m.Connection.Type == "" {
		m.Connection.Type = ConnectionDirect
	}
	if m.Connection.Type == ConnectionProxy && m.Connection.Hostname == "" {
		return nil, fmt.Errorf("manifest: %s: connection type proxy requires hostname", serverDir)
	}

	return &m, nil
}

// Save writes the manifest back to <serverDir>/minecraftd.yaml.
func (m *Manifest) Save(serverDir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(Path(serverDir), data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", serverDir, err)
	}
	return nil
}

// JavaHome resolves the on-disk directory the runtime lives in, for either
// runtime variant.
func (jr JavaRuntime) JavaHome(runtimesDir string) string {
	if jr.Type == JavaRuntimeCustom {
		return jr.JavaHome
	}
	return filepath.Join(runtimesDir, jr.Name)
}

// JavaPath resolves the java executable for either runtime variant.
func (jr JavaRuntime) JavaPath(runtimesDir string) string {
	return filepath.Join(jr.JavaHome(runtimesDir), "bin", "java")
}
</content>
