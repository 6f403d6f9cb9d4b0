package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pable/squad-standings/internal/model"
)

// HTTP fetches match files with GET requests under a base URL. Requests are
// never retried.
type HTTP struct {
	baseURL string
	layout  Layout
	http    *http.Client
	limit   int64
}

// NewHTTP returns an HTTP source. A zero timeout uses ten seconds.
func NewHTTP(baseURL string, layout Layout, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		layout:  layout,
		http:    &http.Client{Timeout: timeout},
		limit:   maxFileSize,
	}
}

func (h *HTTP) String() string { return "http:" + h.baseURL }

// Fetch GETs the file for key. Any non-2xx status is unavailable.
func (h *HTTP) Fetch(ctx context.Context, key model.MatchKey) (*File, error) {
	url := h.baseURL + "/" + strings.TrimLeft(h.layout.Path(key), "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable(err, "GET %s", url)
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, unavailable(err, "GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(nil, "GET %s: HTTP %d", url, resp.StatusCode)
	}
	data, err := readLimited(resp.Body, h.limit)
	if err != nil {
		return nil, unavailable(err, "read %s", url)
	}
	// The path alone names the file; a query string would hide its extension.
	return &File{Name: req.URL.Path, Data: data}, nil
}
