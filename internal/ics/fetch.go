package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "calcols/internal/log"
)

var (
	ErrEmptySource        = errors.New("ics: source has neither URL nor path")
	ErrNotModifiedNoCache = errors.New("ics: 304 Not Modified but no cached body available")
)

// Source represents a single ICS source, either a remote URL or a local
// file path. A "file://" URL is treated as a path.
type Source struct {
	ID   string
	URL  string
	Path string
}

// Local returns the file path of a local source, or "".
func (s Source) Local() string {
	if s.Path != "" {
		return s.Path
	}
	if p, ok := strings.CutPrefix(s.URL, "file://"); ok {
		return p
	}
	return ""
}

func (s Source) String() string {
	if p := s.Local(); p != "" {
		return s.ID + " (" + p + ")"
	}
	return s.ID + " (" + redactURL(s.URL) + ")"
}

// FetchResult is the body read for one source.
type FetchResult struct {
	Source Source
	Body   []byte
	// FromCache is set when the body came from the disk cache after a 304
	// or a failed request.
	FromCache bool
}

// Fetcher reads local sources from disk and remote ones over HTTP, using
// conditional requests against a per-URL disk cache.
type Fetcher struct {
	client *http.Client
	root   string
}

// NewFetcher creates a Fetcher caching remote bodies under cacheDir, one
// subdirectory per URL.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, root: cacheDir}
}

// FetchAll fetches sources in order. Failures are logged and returned
// alongside the results of the sources that succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	var (
		out  = make([]FetchResult, 0, len(sources))
		errs []error
	)
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			appLog.Error("ics fetch failed", err, "source", src)
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}
		out = append(out, res)
	}
	return out, errs
}

// FetchOne fetches a single source.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if p := src.Local(); p != "" {
		body, err := os.ReadFile(p)
		if err != nil {
			return FetchResult{}, err
		}
		appLog.Debug("ics read local", "id", src.ID, "path", p, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil
	}
	if src.URL == "" {
		return FetchResult{}, ErrEmptySource
	}
	return f.fetchRemote(ctx, src)
}

func (f *Fetcher) fetchRemote(ctx context.Context, src Source) (FetchResult, error) {
	cache, err := f.cacheFor(src.URL)
	if err != nil {
		return FetchResult{}, err
	}
	validators, cached := cache.load()
	logURL := redactURL(src.URL)

	fromCache := func(reason error) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, reason
		}
		appLog.Warn("ics fetch failed, using cached body", "id", src.ID, "url", logURL, "reason", reason)
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	validators.apply(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return fromCache(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, ErrNotModifiedNoCache
		}
		appLog.Debug("ics not modified", "id", src.ID, "url", logURL)
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil

	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fromCache(err)
		}
		if err := cache.store(validatorsOf(resp), body); err != nil {
			appLog.Error("ics cache write failed", err, "id", src.ID, "url", logURL)
		}
		appLog.Info("ics fetched", "id", src.ID, "url", logURL, "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil
	}
	return fromCache(fmt.Errorf("ics: unexpected status %s", resp.Status))
}

// validators are the HTTP cache validators remembered for one URL.
type validators struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Stored       time.Time `json:"stored"`
}

func validatorsOf(resp *http.Response) validators {
	return validators{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
}

func (v validators) apply(req *http.Request) {
	if v.ETag != "" {
		req.Header.Set("If-None-Match", v.ETag)
	}
	if v.LastModified != "" {
		req.Header.Set("If-Modified-Since", v.LastModified)
	}
}

// diskCache is the cache directory of one remote URL: body.ics plus
// meta.json holding its validators.
type diskCache string

func (f *Fetcher) cacheFor(url string) (diskCache, error) {
	sum := sha256.Sum256([]byte(url))
	dir := filepath.Join(f.root, hex.EncodeToString(sum[:8]))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return diskCache(dir), nil
}

// load returns the stored validators and body. A missing or corrupt entry
// yields zero values, which makes the next request unconditional.
func (c diskCache) load() (validators, []byte) {
	body, err := os.ReadFile(filepath.Join(string(c), "body.ics"))
	if err != nil {
		return validators{}, nil
	}
	var v validators
	if data, err := os.ReadFile(filepath.Join(string(c), "meta.json")); err == nil {
		_ = json.Unmarshal(data, &v)
	}
	return v, body
}

// store writes the body before the validators, so validators never refer
// to a body that is not on disk.
func (c diskCache) store(v validators, body []byte) error {
	if err := os.WriteFile(filepath.Join(string(c), "body.ics"), body, 0o600); err != nil {
		return err
	}
	v.Stored = time.Now().UTC()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(string(c), "meta.json"), data, 0o600)
}

// redactURL keeps only the scheme and host of an ICS URL for logging;
// subscription URLs usually embed a secret token in the path or query.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "ics://...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	host, _, _ = strings.Cut(host, "?")
	return scheme + "://" + host + "/...(redacted)"
}
