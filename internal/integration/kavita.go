package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

var _ Refresher = (*Kavita)(nil)

// Kavita talks to the Kavita API. Every operation logs in first to obtain a
// bearer token.
type Kavita struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
}

// NewKavita creates a Kavita client. host may omit the scheme.
func NewKavita(host, user, password string) *Kavita {
	return &Kavita{
		baseURL:    baseURL(host),
		user:       user,
		password:   password,
		httpClient: newHTTPClient(),
	}
}

func (k *Kavita) Name() string { return "kavita" }

func (k *Kavita) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

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

func (k *Kavita) login(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	in := map[string]string{"username": k.user, "password": k.password}
	if err := k.do(ctx, http.MethodPost, "/api/Account/login", "", in, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("login: empty token")
	}
	return out.Token, nil
}

type kavitaLibrary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type kavitaSeries struct {
	ID        int    `json:"id"`
	LibraryID int    `json:"libraryId"`
	Name      string `json:"name"`
}

// ScanLibrary triggers a non-forced scan of every Kavita library.
func (k *Kavita) ScanLibrary(ctx context.Context) error {
	token, err := k.login(ctx)
	if err != nil {
		return err
	}
	var libs []kavitaLibrary
	if err := k.do(ctx, http.MethodGet, "/api/Library", token, nil, &libs); err != nil {
		return fmt.Errorf("list libraries: %w", err)
	}
	for _, lib := range libs {
		q := url.Values{"libraryId": {strconv.Itoa(lib.ID)}, "force": {"false"}}
		if err := k.do(ctx, http.MethodPost, "/api/Library/scan?"+q.Encode(), token, nil, nil); err != nil {
			return fmt.Errorf("scan library %s: %w", lib.Name, err)
		}
	}
	return nil
}

// RefreshSeries forces a scan of the series whose name equals title.
func (k *Kavita) RefreshSeries(ctx context.Context, title string) error {
	token, err := k.login(ctx)
	if err != nil {
		return err
	}
	var series []kavitaSeries
	if err := k.do(ctx, http.MethodPost, "/api/Series", token, struct{}{}, &series); err != nil {
		return fmt.Errorf("list series: %w", err)
	}
	for _, s := range series {
		if s.Name != title {
			continue
		}
		in := map[string]any{"libraryId": s.LibraryID, "seriesId": s.ID, "forceUpdate": true}
		if err := k.do(ctx, http.MethodPost, "/api/Series/scan", token, in, nil); err != nil {
			return fmt.Errorf("scan series %s: %w", s.Name, err)
		}
		return nil
	}
	return nil
}
