package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/vmunix/kaizoku/pkg/naming"
)

var _ Refresher = (*Komga)(nil)

// Komga talks to the Komga REST API with basic auth.
type Komga struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
}

// NewKomga creates a Komga client. host may omit the scheme.
func NewKomga(host, user, password string) *Komga {
	return &Komga{
		baseURL:    baseURL(host),
		user:       user,
		password:   password,
		httpClient: newHTTPClient(),
	}
}

func (k *Komga) Name() string { return "komga" }

func (k *Komga) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(k.user, k.password)
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type komgaLibrary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type komgaSeriesPage struct {
	Content []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content"`
}

// ScanLibrary triggers a scan of every Komga library.
func (k *Komga) ScanLibrary(ctx context.Context) error {
	var libs []komgaLibrary
	if err := k.do(ctx, http.MethodGet, "/api/v1/libraries", &libs); err != nil {
		return fmt.Errorf("list libraries: %w", err)
	}
	for _, lib := range libs {
		if err := k.do(ctx, http.MethodPost, "/api/v1/libraries/"+url.PathEscape(lib.ID)+"/scan", nil); err != nil {
			return fmt.Errorf("scan library %s: %w", lib.Name, err)
		}
	}
	return nil
}

// RefreshSeries refreshes the metadata of the series named after the
// title's directory.
func (k *Komga) RefreshSeries(ctx context.Context, title string) error {
	var page komgaSeriesPage
	if err := k.do(ctx, http.MethodGet, "/api/v1/series?unpaged=true", &page); err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	want := naming.Sanitize(title)
	for _, s := range page.Content {
		if s.Name != want {
			continue
		}
		if err := k.do(ctx, http.MethodPost, "/api/v1/series/"+url.PathEscape(s.ID)+"/metadata/refresh", nil); err != nil {
			return fmt.Errorf("refresh series %s: %w", s.Name, err)
		}
		return nil
	}
	return nil
}
