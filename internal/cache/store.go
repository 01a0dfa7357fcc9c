// Package cache implements the offline gateway: a two-cache HTTP router with
// cache-first and network-first strategies backed by per-entry files on disk.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// ErrMiss is returned by Get for URLs with no stored response.
var ErrMiss = errors.New("cache miss")

// Entry is one stored response. Body is raw bytes; JSON encodes it base64.
type Entry struct {
	URL        string      `json:"url"`
	Status     int         `json:"status"`
	StatusText string      `json:"status_text"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Store is a named response cache, one file per entry under dir/name.
type Store struct {
	name string
	dir  string
}

// OpenStore opens (creating if needed) the named cache under root.
func OpenStore(root, name string) (*Store, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache %s: %w", name, err)
	}
	return &Store{name: name, dir: dir}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) Get(url string) (Entry, error) {
	data, err := os.ReadFile(s.entryPath(url))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, ErrMiss
		}
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt entry reads as a miss; the next Put rewrites it.
		return Entry{}, ErrMiss
	}
	return e, nil
}

func (s *Store) Put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(s.entryPath(e.URL), data, 0o600)
}

func (s *Store) entryPath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

// ListCaches returns the names of every cache under root.
func ListCaches(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, ent := range entries {
		if ent.IsDir() {
			names = append(names, ent.Name())
		}
	}
	return names, nil
}

// DeleteCache removes a named cache and everything in it.
func DeleteCache(root, name string) error {
	return os.RemoveAll(filepath.Join(root, name))
}

// entryFromResponse drains the response body into an Entry and replaces the
// body with a reader over the same bytes so the caller can still consume it.
func entryFromResponse(url string, resp *http.Response) (Entry, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return Entry{}, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return Entry{
		URL:        url,
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// response materializes a stored entry back into an HTTP response.
func (e Entry) response(req *http.Request) *http.Response {
	status := e.StatusText
	if status == "" {
		status = strconv.Itoa(e.Status) + " " + http.StatusText(e.Status)
	}
	return &http.Response{
		StatusCode:    e.Status,
		Status:        status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
