package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
)

const (
	generation       = "agenda-v1"
	staticCacheName  = "agenda-static-v1"
	dynamicCacheName = "agenda-dynamic-v1"
)

// staticAssets are pre-cached on Install.
var staticAssets = []string{
	"/",
	"/index.html",
	"/css/style.css",
	"/js/app.js",
	"/manifest.json",
	"/icons/icon-192x192.png",
	"/icons/icon-512x512.png",
}

var staticExtensions = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".woff", ".woff2",
}

// Gateway routes GET requests between two named disk caches and the origin.
// Static-asset requests are cache-first with a background revalidate; every
// other GET is network-first with a dynamic-cache fallback. Non-GET and
// non-http requests pass through untouched.
type Gateway struct {
	origin  http.RoundTripper
	root    string
	static  *Store
	dynamic *Store

	mu      sync.Mutex
	active  bool
	waiting bool

	revalidating sync.WaitGroup
}

func NewGateway(root string, origin http.RoundTripper) (*Gateway, error) {
	if origin == nil {
		origin = http.DefaultTransport
	}
	static, err := OpenStore(root, staticCacheName)
	if err != nil {
		return nil, err
	}
	dynamic, err := OpenStore(root, dynamicCacheName)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		origin:  origin,
		root:    root,
		static:  static,
		dynamic: dynamic,
		waiting: true,
	}, nil
}

// Install pre-populates the static cache from the asset manifest and then
// activates immediately rather than idling in the waiting state. A failed
// asset fetch logs and moves on.
func (g *Gateway) Install(ctx context.Context, base string) error {
	base = strings.TrimRight(base, "/")
	for _, asset := range staticAssets {
		url := base + asset
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building precache request for %s: %w", asset, err)
		}
		resp, err := g.origin.RoundTrip(req)
		if err != nil {
			log.Printf("cache: precaching %s: %v", asset, err)
			continue
		}
		entry, err := entryFromResponse(url, resp)
		if err != nil {
			log.Printf("cache: reading %s: %v", asset, err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if ok(entry.Status) {
			if err := g.static.Put(entry); err != nil {
				log.Printf("cache: storing %s: %v", asset, err)
			}
		}
	}
	return g.Activate()
}

// Activate deletes every cache under the root whose name is not one of the
// two current names, then starts serving.
func (g *Gateway) Activate() error {
	names, err := ListCaches(g.root)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == staticCacheName || name == dynamicCacheName {
			continue
		}
		log.Printf("cache: deleting stale cache %s", name)
		if err := DeleteCache(g.root, name); err != nil {
			return err
		}
	}
	g.mu.Lock()
	g.active = true
	g.waiting = false
	g.mu.Unlock()
	return nil
}

// Active reports whether the gateway has been activated.
func (g *Gateway) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Version returns the active cache generation name.
func (g *Gateway) Version() string { return generation }

// RoundTrip implements http.RoundTripper. Interception starts only once the
// gateway is activated; until then every request passes through untouched.
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	if !g.Active() {
		return g.origin.RoundTrip(req)
	}
	if req.Method != http.MethodGet {
		return g.origin.RoundTrip(req)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return g.origin.RoundTrip(req)
	}
	if isStaticAsset(req.URL.Path) {
		return g.cacheFirst(req), nil
	}
	return g.networkFirst(req), nil
}

// Flush waits for in-flight background revalidations. Used by tests and by
// shutdown; responses are never blocked on it.
func (g *Gateway) Flush() {
	g.revalidating.Wait()
}

func (g *Gateway) cacheFirst(req *http.Request) *http.Response {
	key := req.URL.String()
	if entry, err := g.static.Get(key); err == nil {
		g.revalidating.Add(1)
		go func() {
			defer g.revalidating.Done()
			g.revalidate(req)
		}()
		return entry.response(req)
	}
	resp, err := g.origin.RoundTrip(req)
	if err != nil {
		log.Printf("cache: fetch %s: %v", key, err)
		return unavailable(req, "Offline - Resource not available")
	}
	g.storeResponse(g.static, key, resp)
	return resp
}

func (g *Gateway) networkFirst(req *http.Request) *http.Response {
	key := req.URL.String()
	resp, err := g.origin.RoundTrip(req)
	if err == nil {
		g.storeResponse(g.dynamic, key, resp)
		return resp
	}

	if entry, lookupErr := g.dynamic.Get(key); lookupErr == nil {
		return entry.response(req)
	}
	if entry, lookupErr := g.static.Get(key); lookupErr == nil {
		return entry.response(req)
	}
	if acceptsHTML(req) {
		if shell, shellErr := g.offlineShell(req); shellErr == nil {
			return shell
		}
	}
	return unavailable(req, "Offline")
}

// revalidate refreshes a cached static entry. Failure is silent; the stale
// copy was already served.
func (g *Gateway) revalidate(req *http.Request) {
	clone := req.Clone(context.Background())
	clone.Body = nil
	resp, err := g.origin.RoundTrip(clone)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if !ok(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return
	}
	entry, err := entryFromResponse(req.URL.String(), resp)
	if err != nil {
		return
	}
	if err := g.static.Put(entry); err != nil {
		log.Printf("cache: revalidating %s: %v", req.URL, err)
	}
}

// storeResponse copies a 2xx response into the given cache, leaving the
// response body readable for the caller.
func (g *Gateway) storeResponse(store *Store, key string, resp *http.Response) {
	if !ok(resp.StatusCode) {
		return
	}
	entry, err := entryFromResponse(key, resp)
	if err != nil {
		log.Printf("cache: reading %s: %v", key, err)
		return
	}
	if err := store.Put(entry); err != nil {
		log.Printf("cache: storing %s: %v", key, err)
	}
}

// offlineShell serves the cached root document for offline page loads.
func (g *Gateway) offlineShell(req *http.Request) (*http.Response, error) {
	base := req.URL.Scheme + "://" + req.URL.Host
	for _, path := range []string{"/index.html", "/"} {
		if entry, err := g.static.Get(base + path); err == nil {
			return entry.response(req), nil
		}
	}
	return nil, ErrMiss
}

// Message is a control message from the page context.
type Message struct {
	Type string `json:"type"`
}

const (
	MsgSkipWaiting = "SKIP_WAITING"
	MsgGetVersion  = "GET_VERSION"
)

// VersionReply answers a GET_VERSION message.
type VersionReply struct {
	Version string `json:"version"`
}

// HandleMessage processes one control message. SKIP_WAITING activates
// immediately; GET_VERSION returns a reply payload. Unknown types are
// logged and ignored.
func (g *Gateway) HandleMessage(raw []byte) ([]byte, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decoding control message: %w", err)
	}
	switch msg.Type {
	case MsgSkipWaiting:
		return nil, g.Activate()
	case MsgGetVersion:
		return json.Marshal(VersionReply{Version: g.Version()})
	default:
		log.Printf("cache: ignoring message type %q", msg.Type)
		return nil, nil
	}
}

// HandleSync accepts a background sync tag. There is no server to sync
// against, so tags are acknowledged and logged.
func (g *Gateway) HandleSync(tag string) {
	switch tag {
	case "sync-tasks":
		log.Printf("cache: sync-tasks requested")
	case "check-tasks":
		log.Printf("cache: check-tasks requested")
	default:
		log.Printf("cache: unknown sync tag %q", tag)
	}
}

func isStaticAsset(path string) bool {
	for _, ext := range staticExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func acceptsHTML(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

func unavailable(req *http.Request, body string) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusServiceUnavailable,
		Status:        "503 Service Unavailable",
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
