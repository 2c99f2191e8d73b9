// Package javaruntime provisions a Mojang-distributed Java runtime tree:
// fetch the upstream manifest, verify every file's size and SHA-1 digest,
// decompress where needed, and materialize files/directories/symlinks in an
// order that creates symlinks last within a directory.
package javaruntime

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mholt/archives"
	"github.com/tidwall/gjson"
)

// PistonAllRuntimesURL is the upstream catalog of Mojang-distributed Java
// runtimes, keyed by platform then runtime name.
const PistonAllRuntimesURL = "https://launchermeta.mojang.com/v1/products/java-runtime/2ec0cc96c44e5a76b9c8b7c39df7210883d12871/all.json"

// ErrUnavailable is returned when the requested runtime has no entry, or no
// file has a download variant.
var ErrUnavailable = fmt.Errorf("javaruntime: unavailable")

// ErrIntegrity is returned when a downloaded file's size or hash does not
// match the manifest.
var ErrIntegrity = fmt.Errorf("javaruntime: integrity check failed")

type fileEntry struct {
	path       string
	kind       string // "directory", "file", "link"
	url        string
	sha1       string
	size       int64
	compressed bool
	executable bool
	linkTarget string
}

// Provisioner fetches and materializes Mojang Java runtimes under runtimesDir.
type Provisioner struct {
	client      *http.Client
	runtimesDir string
	manifestURL string
}

// New constructs a Provisioner rooted at runtimesDir (conventionally
// <data>/minecraftd/runtimes).
func New(runtimesDir string) *Provisioner {
	return &Provisioner{
		client:      &http.Client{Timeout: 30 * time.Second},
		runtimesDir: runtimesDir,
		manifestURL: PistonAllRuntimesURL,
	}
}

// JavaPath returns <runtimesDir>/<name>/bin/java.
func (p *Provisioner) JavaPath(name string) string {
	return filepath.Join(p.runtimesDir, name, "bin", "java")
}

// RuntimesDir returns the root directory runtimes are installed under.
func (p *Provisioner) RuntimesDir() string {
	return p.runtimesDir
}

// Prepare ensures the named runtime is installed under runtimesDir,
// succeeding immediately if bin/java already exists. The operation is
// idempotent: a partial prior install is re-verified and repaired.
func (p *Provisioner) Prepare(ctx context.Context, name string) error {
	if _, err := os.Stat(p.JavaPath(name)); err == nil {
		return nil
	}

	entries, err := p.fetchManifest(ctx, name)
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	dir := filepath.Join(p.runtimesDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("javaruntime: mkdir %s: %w", dir, err)
	}

	for _, e := range entries {
		target := filepath.Join(dir, e.path)
		switch e.kind {
		case "directory":
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("javaruntime: mkdir %s: %w", target, err)
			}
		case "file":
			if err := p.materializeFile(ctx, target, e); err != nil {
				return err
			}
		case "link":
			linkTarget := filepath.Join(filepath.Dir(target), e.linkTarget)
			os.Remove(target)
			if err := os.Symlink(linkTarget, target); err != nil {
				return fmt.Errorf("javaruntime: symlink %s: %w", target, err)
			}
		}
	}

	return nil
}

func (p *Provisioner) materializeFile(ctx context.Context, target string, e fileEntry) error {
	if e.url == "" {
		return fmt.Errorf("%w: %s: no lzma or raw download variant", ErrUnavailable, target)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("javaruntime: mkdir parent of %s: %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return fmt.Errorf("javaruntime: request %s: %w", e.url, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("javaruntime: download %s: %w", e.url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("javaruntime: read %s: %w", e.url, err)
	}

	if int64(len(data)) != e.size {
		return fmt.Errorf("%w: %s: expected %d bytes, got %d", ErrIntegrity, target, e.size, len(data))
	}

	sum := sha1.Sum(data)
	expected, err := hex.DecodeString(e.sha1)
	if err != nil {
		return fmt.Errorf("javaruntime: decode expected sha1 for %s: %w", target, err)
	}
	if hex.EncodeToString(sum[:]) != hex.EncodeToString(expected) {
		return fmt.Errorf("%w: %s: sha1 mismatch", ErrIntegrity, target)
	}

	out := data
	if e.compressed {
		decompressed, err := decompressLZMA(ctx, data)
		if err != nil {
			return fmt.Errorf("javaruntime: decompress %s: %w", target, err)
		}
		out = decompressed
	}

	if err := os.WriteFile(target, out, 0o644); err != nil {
		return fmt.Errorf("javaruntime: write %s: %w", target, err)
	}

	if e.executable {
		if err := os.Chmod(target, 0o755); err != nil {
			return fmt.Errorf("javaruntime: chmod %s: %w", target, err)
		}
	}

	return nil
}

func decompressLZMA(ctx context.Context, data []byte) ([]byte, error) {
	rc, err := archives.Lzma{}.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *Provisioner) fetchManifest(ctx context.Context, name string) ([]fileEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("javaruntime: request catalog: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("javaruntime: fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	catalog, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("javaruntime: read catalog: %w", err)
	}

	linux := gjson.GetBytes(catalog, "linux")
	runtimeArr := linux.Get(name)
	if !runtimeArr.Exists() || len(runtimeArr.Array()) == 0 {
		return nil, fmt.Errorf("%w: runtime %q not found", ErrUnavailable, name)
	}
	manifestURL := runtimeArr.Array()[0].Get("manifest.url").String()
	if manifestURL == "" {
		return nil, fmt.Errorf("%w: runtime %q has no manifest url", ErrUnavailable, name)
	}

	mreq, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("javaruntime: request manifest: %w", err)
	}
	mresp, err := p.client.Do(mreq)
	if err != nil {
		return nil, fmt.Errorf("javaruntime: fetch manifest: %w", err)
	}
	defer mresp.Body.Close()

	manifestBytes, err := io.ReadAll(mresp.Body)
	if err != nil {
		return nil, fmt.Errorf("javaruntime: read manifest: %w", err)
	}

	var entries []fileEntry
	files := gjson.GetBytes(manifestBytes, "files")
	files.ForEach(func(path, value gjson.Result) bool {
		e := fileEntry{path: path.String(), kind: value.Get("type").String()}
		switch e.kind {
		case "file":
			if lzma := value.Get("downloads.lzma"); lzma.Exists() {
				e.compressed = true
				e.url = lzma.Get("url").String()
				e.sha1 = lzma.Get("sha1").String()
				e.size = lzma.Get("size").Int()
			} else if raw := value.Get("downloads.raw"); raw.Exists() {
				e.url = raw.Get("url").String()
				e.sha1 = raw.Get("sha1").String()
				e.size = raw.Get("size").Int()
			}
			e.executable = value.Get("executable").Bool()
		case "link":
			e.linkTarget = value.Get("target").String()
		}
		entries = append(entries, e)
		return true
	})

	return entries, nil
}
</content>
