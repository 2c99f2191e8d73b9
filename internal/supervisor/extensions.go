package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oriku/minecraftd/internal/manifest"
)

// AddExtension fetches (or reuses) an extension jar from the cache, links it
// into serverDir's mods/ or plugins/ directory, and records it in the
// manifest. The link name doubles as the on-disk identity used by
// reconciliation: "<id>-<provider>-<id>-<versionID>.jar".
func (s *Supervisor) AddExtension(ctx context.Context, serverDir, providerName string, extType manifest.ExtensionType, extensionID, versionID string, autoUpdate bool) error {
	ext := manifest.Extension{
		Name:       extensionID,
		Type:       extType,
		Provider:   providerName,
		ID:         extensionID,
		VersionID:  versionID,
		AutoUpdate: autoUpdate,
	}

	if err := s.linkExtension(ctx, serverDir, ext); err != nil {
		return err
	}

	m, err := manifest.Load(serverDir)
	if err != nil {
		return fmt.Errorf("supervisor: load manifest: %w", err)
	}

	m.Extensions = replaceExtension(m.Extensions, ext)

	if err := m.Save(serverDir); err != nil {
		return fmt.Errorf("supervisor: save manifest: %w", err)
	}

	return nil
}

func replaceExtension(existing []manifest.Extension, ext manifest.Extension) []manifest.Extension {
	for i, e := range existing {
		if e.Provider == ext.Provider && e.ID == ext.ID {
			existing[i] = ext
			return existing
		}
	}
	return append(existing, ext)
}

// extensionSubdir is "mods" for a mod, "plugins" for a plugin.
func extensionSubdir(extType manifest.ExtensionType) string {
	if extType == manifest.ExtensionPlugin {
		return "plugins"
	}
	return "mods"
}

// extensionLinkName is the on-disk identity reconciliation matches entries
// against: "<id>-<provider>-<id>-<versionID>.jar".
func extensionLinkName(ext manifest.Extension) string {
	return fmt.Sprintf("%s-%s-%s-%s.jar", ext.ID, ext.Provider, ext.ID, ext.VersionID)
}

func extensionLinkPath(serverDir string, ext manifest.Extension) string {
	return filepath.Join(serverDir, extensionSubdir(ext.Type), extensionLinkName(ext))
}

// linkExtension fetches (or reuses) ext's cached jar and symlinks it into
// serverDir's mods/ or plugins/ directory, replacing any existing link of
// the same name.
func (s *Supervisor) linkExtension(ctx context.Context, serverDir string, ext manifest.Extension) error {
	provider, ok := s.catalog.Extension(ext.Provider)
	if !ok {
		return fmt.Errorf("supervisor: unknown extension provider %q", ext.Provider)
	}

	jarPath, err := s.cache.GetExtensionJar(ctx, provider, string(ext.Type), ext.ID, ext.VersionID)
	if err != nil {
		return fmt.Errorf("supervisor: fetch extension jar: %w", err)
	}

	linkPath := extensionLinkPath(serverDir, ext)
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return fmt.Errorf("supervisor: create %s directory: %w", extensionSubdir(ext.Type), err)
	}

	os.Remove(linkPath) // replacing a prior version of the same extension is a no-op otherwise
	if err := os.Symlink(jarPath, linkPath); err != nil {
		return fmt.Errorf("supervisor: link extension jar: %w", err)
	}
	return nil
}

// reconcileExtensions implements the start sequence's extension reconciliation
// step: under <serverDir>/mods and <serverDir>/plugins, any symlink that
// resolves into the extension cache but matches no manifest entry is removed;
// any manifest entry not yet linked is linked. Symlinks that resolve outside
// the cache (operator-managed jars) are left untouched. Best-effort: a
// failure to link or unlink one entry is logged and does not abort the start.
func (s *Supervisor) reconcileExtensions(ctx context.Context, serverDir string, m *manifest.Manifest) {
	cacheRoot, err := filepath.Abs(s.cache.ExtensionCacheRoot())
	if err != nil {
		s.log.Error("supervisor: resolve extension cache root: %v", err)
		return
	}

	wanted := make(map[string]manifest.Extension, len(m.Extensions))
	for _, ext := range m.Extensions {
		wanted[extensionLinkPath(serverDir, ext)] = ext
	}

	for _, subdir := range [2]string{"mods", "plugins"} {
		dir := filepath.Join(serverDir, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // no mods/plugins directory yet is not an error
		}
		for _, entry := range entries {
			if entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			linkPath := filepath.Join(dir, entry.Name())
			if _, ok := wanted[linkPath]; ok {
				continue
			}
			target, err := filepath.EvalSymlinks(linkPath)
			if err != nil {
				continue // broken link; leave it for the operator to clean up
			}
			if !pathWithinDir(cacheRoot, target) {
				continue
			}
			if err := os.Remove(linkPath); err != nil {
				s.log.Error("supervisor: remove stale extension symlink %q: %v", linkPath, err)
			}
		}
	}

	for linkPath, ext := range wanted {
		if _, err := os.Lstat(linkPath); err == nil {
			continue
		}
		if err := s.linkExtension(ctx, serverDir, ext); err != nil {
			s.log.Error("supervisor: link extension %s/%s for %q: %v", ext.Provider, ext.ID, serverDir, err)
		}
	}
}

// pathWithinDir reports whether path is root or a descendant of root.
func pathWithinDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
