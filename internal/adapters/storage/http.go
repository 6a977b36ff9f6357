package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jobrunner/refsys/internal/registry"
)

// maxDocumentSize bounds the size of a downloaded definitions document.
const maxDocumentSize = 16 << 20

// HTTPSource implements DefinitionSource for a definitions document served over
// HTTP(S). Unchanged documents are detected with ETags.
type HTTPSource struct {
	client   *http.Client
	url      string
	username string
	password string

	mu   sync.Mutex
	etag string
	defs []registry.Definition
}

// HTTPConfig holds HTTP source configuration.
type HTTPConfig struct {
	URL      string
	Timeout  time.Duration
	Username string
	Password string
}

// NewHTTPSource creates a new HTTP definition source.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:      cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Name implements output.DefinitionSource.
func (s *HTTPSource) Name() string {
	return s.url
}

// Load implements output.DefinitionSource.
func (s *HTTPSource) Load(ctx context.Context) ([]registry.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching definitions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		if s.etag != "" {
			return s.defs, nil
		}
		fallthrough
	default:
		return nil, fmt.Errorf("definitions returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("definitions document exceeds %d bytes", maxDocumentSize)
	}

	defs, err := registry.Parse(data)
	if err != nil {
		return nil, err
	}

	s.etag = resp.Header.Get("ETag")
	s.defs = defs
	return defs, nil
}
