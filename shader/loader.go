package shader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// commonSourceFile is the shared declaration fragment prefixed to every
// shader body.
const commonSourceFile = "common.inc.glsl"

// Loader fetches the shader source bundle from static hosting.
type Loader struct {
	// BaseURL is the directory URL the source files live under.
	BaseURL string

	// Client is the HTTP client to use. Nil means http.DefaultClient.
	Client *http.Client

	// Logger receives per-file fetch traces at debug level. Nil disables
	// logging.
	Logger *slog.Logger
}

func (l *Loader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

func (l *Loader) fetch(ctx context.Context, name string) (string, error) {
	url := strings.TrimSuffix(l.BaseURL, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("shader: building request for %s: %w", name, err)
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("shader: fetching %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shader: fetching %s: unexpected status %s", name, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("shader: reading %s: %w", name, err)
	}
	if l.Logger != nil {
		l.Logger.Debug("fetched shader source", "file", name, "bytes", len(body))
	}
	return string(body), nil
}

// Load fetches the common fragment and every catalog program's stage
// sources. The fetches run sequentially; the whole bundle is small and
// loaded once at startup.
func (l *Loader) Load(ctx context.Context) (*SourceSet, error) {
	common, err := l.fetch(ctx, commonSourceFile)
	if err != nil {
		return nil, err
	}
	set := &SourceSet{Common: common, Programs: make(map[string]Source, len(Names))}
	for _, name := range Names {
		vertex, err := l.fetch(ctx, name+".vs.glsl")
		if err != nil {
			return nil, err
		}
		fragment, err := l.fetch(ctx, name+".fs.glsl")
		if err != nil {
			return nil, err
		}
		set.Programs[name] = Source{Vertex: vertex, Fragment: fragment}
	}
	return set, nil
}
