package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxCatalogBody = 16 << 20

// HTTPSource fetches subjects from a remote game-data service at
// GET <base>/subjects/<id>.json. Responses are single subject objects.
type HTTPSource struct {
	base   string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource. A nil client gets a 30s timeout.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{base: base, client: client}, nil
}

func (h *HTTPSource) Subject(ctx context.Context, id string) (Subject, error) {
	u := h.base + "/subjects/" + url.PathEscape(id) + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Subject{}, fmt.Errorf("build catalog request: %w", err)
	}
	res, err := h.client.Do(req)
	if err != nil {
		return Subject{}, fmt.Errorf("catalog request failed: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return Subject{}, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return Subject{}, fmt.Errorf("catalog request status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxCatalogBody))
	if err != nil {
		return Subject{}, fmt.Errorf("read catalog response: %w", err)
	}
	src, err := ParseJSON([]byte(`{"subjects":[` + string(body) + `]}`))
	if err != nil {
		return Subject{}, fmt.Errorf("parse subject %s: %w", id, err)
	}
	return src.Subject(ctx, id)
}
