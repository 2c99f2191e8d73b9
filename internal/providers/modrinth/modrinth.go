// Package modrinth implements providers.ExtensionProvider against the
// Modrinth mod/plugin catalog API.
package modrinth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/oriku/minecraftd/internal/providers"
)

const apiBase = "https://api.modrinth.com/v2"

// projectURL matches modrinth.com/{mod,plugin,resourcepack,...}/{slug} URLs,
// the form users paste when they mean "add this extension".
var projectURL = regexp.MustCompile(`^https?://modrinth\.com/(mod|plugin)/([^/?#]+)`)

// Provider implements providers.ExtensionProvider against the Modrinth API.
type Provider struct {
	client *http.Client
}

// New constructs a modrinth Provider.
func New() *Provider {
	return &Provider{client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *Provider) Name() string { return "modrinth" }

func projectType(extType string) string {
	if extType == "plugin" {
		return "plugin"
	}
	return "mod"
}

// Search queries the Modrinth project search endpoint, filtered by project
// type and game version.
func (p *Provider) Search(ctx context.Context, extType, serverVersion, query string) ([]providers.ExtensionInfo, error) {
	facets := fmt.Sprintf(`[["project_type:%s"],["versions:%s"]]`, projectType(extType), serverVersion)
	q := url.Values{}
	q.Set("query", query)
	q.Set("facets", facets)

	body, err := p.get(ctx, apiBase+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out []providers.ExtensionInfo
	gjson.GetBytes(body, "hits").ForEach(func(_, hit gjson.Result) bool {
		out = append(out, providers.ExtensionInfo{
			ID:   hit.Get("project_id").String(),
			Type: extType,
			Name: hit.Get("title").String(),
		})
		return true
	})
	return out, nil
}

// Versions lists a project's versions compatible with serverVersion,
// newest-first as returned by Modrinth.
func (p *Provider) Versions(ctx context.Context, extType, serverVersion, extensionID string) ([]providers.ExtensionVersionInfo, error) {
	q := url.Values{}
	q.Set("game_versions", fmt.Sprintf(`["%s"]`, serverVersion))

	body, err := p.get(ctx, fmt.Sprintf("%s/project/%s/version?%s", apiBase, url.PathEscape(extensionID), q.Encode()))
	if err != nil {
		return nil, err
	}

	var out []providers.ExtensionVersionInfo
	for _, v := range gjson.ParseBytes(body).Array() {
		out = append(out, providers.ExtensionVersionInfo{
			ID:       v.Get("id").String(),
			Version:  v.Get("version_number").String(),
			IsStable: v.Get("version_type").String() == "release",
		})
	}
	return out, nil
}

// Fetch streams the primary file of the given extension version.
func (p *Provider) Fetch(ctx context.Context, extType, extensionID, versionID string) (io.ReadCloser, string, error) {
	body, err := p.get(ctx, fmt.Sprintf("%s/version/%s", apiBase, url.PathEscape(versionID)))
	if err != nil {
		return nil, "", err
	}

	files := gjson.GetBytes(body, "files")
	var fileURL, sha256 string
	for _, f := range files.Array() {
		if f.Get("primary").Bool() || fileURL == "" {
			fileURL = f.Get("url").String()
			sha256 = f.Get("hashes.sha256").String()
		}
		if f.Get("primary").Bool() {
			break
		}
	}
	if fileURL == "" {
		return nil, "", fmt.Errorf("modrinth: version %s has no files", versionID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("modrinth: build download request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("modrinth: download file: %w", err)
	}
	return resp.Body, sha256, nil
}

// ResolveURL extracts a project type and slug from a modrinth.com project
// URL. The slug doubles as the extension id Modrinth's API accepts.
func (p *Provider) ResolveURL(rawURL string) (extType, id string, ok bool) {
	m := projectURL.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (p *Provider) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("modrinth: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("modrinth: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("modrinth: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("modrinth: %s: status %d", url, resp.StatusCode)
	}
	return data, nil
}
</content>
