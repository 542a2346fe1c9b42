package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteFactory talks to the external browser driver sidecar over HTTP.
// The sidecar owns the actual headless browser; each session here maps to
// one driver session.
type RemoteFactory struct {
	baseURL string
	client  *http.Client
}

func NewRemoteFactory(baseURL string) *RemoteFactory {
	return &RemoteFactory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

var _ Factory = (*RemoteFactory)(nil)

func (f *RemoteFactory) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	body, _ := json.Marshal(map[string]string{
		"session_cookie": opts.SessionCookie,
		"proxy_addr":     opts.ProxyAddr,
		"proxy_username": opts.ProxyUsername,
		"proxy_password": opts.ProxyPassword,
	})

	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := f.do(ctx, http.MethodPost, "/sessions", body, &resp); err != nil {
		return nil, fmt.Errorf("open driver session: %w", err)
	}

	return &remoteSession{factory: f, id: resp.SessionID}, nil
}

func (f *RemoteFactory) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("driver %s %s: status %d: %s", method, path, res.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

type remoteSession struct {
	factory *RemoteFactory
	id      string
	lastURL string
}

func (s *remoteSession) path(suffix string) string {
	return "/sessions/" + s.id + suffix
}

func (s *remoteSession) Navigate(ctx context.Context, url string) error {
	body, _ := json.Marshal(map[string]string{"url": url})
	if err := s.factory.do(ctx, http.MethodPost, s.path("/navigate"), body, nil); err != nil {
		return err
	}
	s.lastURL = url
	return nil
}

func (s *remoteSession) CurrentURL() string {
	var resp struct {
		URL string `json:"url"`
	}
	if err := s.factory.do(context.Background(), http.MethodGet, s.path("/url"), nil, &resp); err != nil {
		return s.lastURL
	}
	return resp.URL
}

func (s *remoteSession) ElementVisible(ctx context.Context, selector string) (bool, error) {
	body, _ := json.Marshal(map[string]string{"selector": selector})
	var resp struct {
		Visible bool `json:"visible"`
	}
	if err := s.factory.do(ctx, http.MethodPost, s.path("/element_visible"), body, &resp); err != nil {
		return false, err
	}
	return resp.Visible, nil
}

func (s *remoteSession) VisibleText(ctx context.Context) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := s.factory.do(ctx, http.MethodGet, s.path("/text"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (s *remoteSession) Screenshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.factory.baseURL+s.path("/screenshot"), nil)
	if err != nil {
		return nil, err
	}
	res, err := s.factory.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("driver screenshot: status %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

func (s *remoteSession) ClickConnect(ctx context.Context) error {
	return s.factory.do(ctx, http.MethodPost, s.path("/connect"), nil, nil)
}

func (s *remoteSession) SendNote(ctx context.Context, message string) error {
	body, _ := json.Marshal(map[string]string{"message": message})
	return s.factory.do(ctx, http.MethodPost, s.path("/note"), body, nil)
}

func (s *remoteSession) Close() error {
	return s.factory.do(context.Background(), http.MethodDelete, s.path(""), nil, nil)
}
