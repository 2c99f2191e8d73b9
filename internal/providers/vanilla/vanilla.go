// Package vanilla implements providers.ServerImplementation against the
// Mojang version manifest, for the stock "vanilla" server.jar.
package vanilla

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oriku/minecraftd/internal/providers"
)

const versionManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

const manifestCacheTTL = time.Hour

type manifestVersion struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	ReleaseTime string `json:"releaseTime"`
}

type versionManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []manifestVersion `json:"versions"`
}

type versionMetadata struct {
	Downloads struct {
		Server struct {
			URL  string `json:"url"`
			SHA1 string `json:"sha1"`
			Size int64  `json:"size"`
		} `json:"server"`
	} `json:"downloads"`
	JavaVersion struct {
		Component string `json:"component"`
	} `json:"javaVersion"`
}

// Implementation fetches version/build metadata from the Mojang launcher
// meta service. A "build" in this implementation is always "1": vanilla has
// no build numbering, only one server.jar per version.
type Implementation struct {
	client *http.Client

	mu       sync.Mutex
	cached   *versionManifest
	cachedAt time.Time
}

// New constructs a vanilla Implementation.
func New() *Implementation {
	return &Implementation{client: &http.Client{Timeout: 15 * time.Second}}
}

func (i *Implementation) Name() string { return "vanilla" }

func (i *Implementation) manifest(ctx context.Context) (*versionManifest, error) {
	i.mu.Lock()
	if i.cached != nil && time.Since(i.cachedAt) < manifestCacheTTL {
		m := i.cached
		i.mu.Unlock()
		return m, nil
	}
	i.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionManifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("vanilla: build request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vanilla: fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	var m versionManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("vanilla: decode manifest: %w", err)
	}

	i.mu.Lock()
	i.cached = &m
	i.cachedAt = time.Now()
	i.mu.Unlock()

	return &m, nil
}

// Versions returns release and snapshot IDs, newest-first as published by
// Mojang.
func (i *Implementation) Versions(ctx context.Context) ([]string, error) {
	m, err := i.manifest(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m.Versions))
	for _, v := range m.Versions {
		out = append(out, v.ID)
	}
	return out, nil
}

// Builds always returns exactly one build, "1", stable iff the version type
// is "release".
func (i *Implementation) Builds(ctx context.Context, version string) ([]providers.VersionBuild, error) {
	m, err := i.manifest(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range m.Versions {
		if v.ID == version {
			return []providers.VersionBuild{{Version: version, Build: "1", Stable: v.Type == "release"}}, nil
		}
	}
	return nil, fmt.Errorf("vanilla: unknown version %q", version)
}

func (i *Implementation) versionURL(ctx context.Context, version string) (string, error) {
	m, err := i.manifest(ctx)
	if err != nil {
		return "", err
	}
	for _, v := range m.Versions {
		if v.ID == version {
			return v.URL, nil
		}
	}
	return "", fmt.Errorf("vanilla: unknown version %q", version)
}

func (i *Implementation) metadata(ctx context.Context, version string) (*versionMetadata, error) {
	url, err := i.versionURL(ctx, version)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vanilla: build metadata request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vanilla: fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	var meta versionMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("vanilla: decode metadata: %w", err)
	}
	return &meta, nil
}

// DefaultJavaRuntime returns the Mojang launcher component name (e.g.
// "java-runtime-gamma") recommended for the version.
func (i *Implementation) DefaultJavaRuntime(ctx context.Context, version, build string) (string, error) {
	meta, err := i.metadata(ctx, version)
	if err != nil {
		return "", err
	}
	if meta.JavaVersion.Component == "" {
		return "", fmt.Errorf("vanilla: no java runtime component for %s", version)
	}
	return meta.JavaVersion.Component, nil
}

// Fetch streams the vanilla server.jar for the given version.
func (i *Implementation) Fetch(ctx context.Context, version, build string) (io.ReadCloser, string, error) {
	meta, err := i.metadata(ctx, version)
	if err != nil {
		return nil, "", err
	}
	if meta.Downloads.Server.URL == "" {
		return nil, "", fmt.Errorf("vanilla: no server.jar for version %s", version)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.Downloads.Server.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("vanilla: build download request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("vanilla: download server.jar: %w", err)
	}
	return resp.Body, meta.Downloads.Server.SHA1, nil
}
</content>
