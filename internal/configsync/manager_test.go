package configsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/micro-ha/reolink-nvr/addon/internal/model"
)

type fakeFetcher struct {
	result FetchResult
	err    error
}

func (f *fakeFetcher) FetchConfig(ctx context.Context) (FetchResult, error) {
	return f.result, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshDetectsVersionChange(t *testing.T) {
	fetcher := &fakeFetcher{result: FetchResult{
		Configured: true,
		Config:     model.NVRConfig{Version: 1, Host: "192.168.1.10", Username: "admin"},
	}}
	m := NewManager(fetcher, testLogger())

	changed, err := m.Refresh(context.Background())
	if err != nil || !changed {
		t.Fatalf("first refresh changed=%v err=%v, want true/nil", changed, err)
	}

	changed, err = m.Refresh(context.Background())
	if err != nil || changed {
		t.Fatalf("same-version refresh changed=%v err=%v, want false/nil", changed, err)
	}

	fetcher.result.Config.Version = 2
	changed, _ = m.Refresh(context.Background())
	if !changed {
		t.Fatalf("version bump not detected")
	}

	cfg, ok := m.Get()
	if !ok || cfg.Version != 2 {
		t.Fatalf("get = %+v/%v, want version 2", cfg, ok)
	}
}

func TestRefreshHandlesUnconfigured(t *testing.T) {
	fetcher := &fakeFetcher{result: FetchResult{Configured: false}}
	m := NewManager(fetcher, testLogger())

	changed, err := m.Refresh(context.Background())
	if err != nil || changed {
		t.Fatalf("refresh on never-configured changed=%v err=%v, want false/nil", changed, err)
	}
	if _, ok := m.Get(); ok {
		t.Fatalf("get should report unconfigured")
	}

	// Configure, then remove: removal must count as a change.
	fetcher.result = FetchResult{Configured: true, Config: model.NVRConfig{Version: 1, Host: "h", Username: "u"}}
	m.Refresh(context.Background())
	fetcher.result = FetchResult{Configured: false}
	changed, _ = m.Refresh(context.Background())
	if !changed {
		t.Fatalf("config removal not reported as change")
	}
	if _, ok := m.Get(); ok {
		t.Fatalf("config should be cleared after removal")
	}
}

func TestRefreshKeepsConfigOnFetchError(t *testing.T) {
	fetcher := &fakeFetcher{result: FetchResult{
		Configured: true,
		Config:     model.NVRConfig{Version: 1, Host: "h", Username: "u"},
	}}
	m := NewManager(fetcher, testLogger())
	m.Refresh(context.Background())

	fetcher.err = errors.New("supervisor unreachable")
	changed, err := m.Refresh(context.Background())
	if err == nil || changed {
		t.Fatalf("refresh changed=%v err=%v, want false/error", changed, err)
	}
	if _, ok := m.Get(); !ok {
		t.Fatalf("fetch error must not drop the last good config")
	}
}

func TestClientFetchConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reolink_nvr/config" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"configured": true,
			"version": 7,
			"host": "192.168.1.10",
			"port": 443,
			"username": "admin",
			"password": "secret",
			"use_https": true,
			"poll_interval_sec": 2
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	res, err := client.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.Configured {
		t.Fatalf("result not configured: %+v", res)
	}
	if res.Config.Version != 7 || res.Config.Host != "192.168.1.10" {
		t.Fatalf("config = %+v", res.Config)
	}
	if res.Config.PollIntervalSec != 5 {
		t.Fatalf("poll interval = %d, want clamped to 5", res.Config.PollIntervalSec)
	}
}

func TestClientFetchConfigNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	client := NewClient(server.URL, "")
	res, err := client.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Configured {
		t.Fatalf("404 must map to unconfigured")
	}
}

func TestClientFetchConfigIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"configured": true, "version": 1, "host": ""}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	res, err := client.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Configured {
		t.Fatalf("config without host must be treated as unconfigured")
	}
}
