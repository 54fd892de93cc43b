package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/heritageplates/backend/entity"
	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/metrics"
)

const (
	DefaultImageQuality     = 80
	PlaceholderQuality      = 20
	PlaceholderMaxDimension = 64
	maxImageDimension       = 4096
	defaultMaxSourcePixels  = 40_000_000
	preloadConcurrency      = 4
	// evictionTarget is the share of MaxBytes the cache shrinks to once it overflows.
	evictionTarget = 0.8
)

// ImageIndexStore persists cache entries between restarts.
type ImageIndexStore interface {
	LoadAll(ctx context.Context) ([]entity.ImageCacheEntry, error)
	Save(ctx context.Context, e *entity.ImageCacheEntry) error
	Delete(ctx context.Context, keys ...string) error
}

type ImageCacheOptions struct {
	Dir              string
	MaxBytes         int64
	MaxAge           time.Duration
	AllowedHosts     []string
	MaxDownloadBytes int64
	// MaxSourcePixels bounds width*height of a source image before it is decoded.
	MaxSourcePixels int64
	// AllowPrivateNetworks lets the fetcher dial loopback and private addresses.
	AllowPrivateNetworks bool
}

// ImageRequest identifies one rendition. Zero width/height keeps the source size.
type ImageRequest struct {
	URI     string `form:"uri" json:"uri" binding:"required"`
	Width   int    `form:"w" json:"width"`
	Height  int    `form:"h" json:"height"`
	Quality int    `form:"q" json:"quality"`
}

type ProgressiveImage struct {
	Placeholder *entity.ImageCacheEntry `json:"placeholder"`
	Full        *entity.ImageCacheEntry `json:"full"`
}

type ImageCacheStats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"totalBytes"`
	MaxBytes   int64 `json:"maxBytes"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
}

type ImageCacheService struct {
	Store ImageIndexStore
	Opts  ImageCacheOptions
	HTTP  *http.Client
	Retry apperr.Policy
	Log   logrus.FieldLogger
	Now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entity.ImageCacheEntry
	total   int64

	hits   atomic.Int64
	misses atomic.Int64
}

func NewImageCacheService(store ImageIndexStore, opts ImageCacheOptions, log logrus.FieldLogger) *ImageCacheService {
	if opts.MaxDownloadBytes <= 0 {
		opts.MaxDownloadBytes = 15 << 20
	}
	if opts.MaxSourcePixels <= 0 {
		opts.MaxSourcePixels = defaultMaxSourcePixels
	}
	return &ImageCacheService{
		Store:   store,
		Opts:    opts,
		HTTP:    newImageHTTPClient(opts.AllowPrivateNetworks),
		Retry:   apperr.DefaultPolicy(),
		Log:     log,
		Now:     time.Now,
		entries: make(map[string]*entity.ImageCacheEntry),
	}
}

// ImageKey is stable across restarts so persisted entries are found again.
func ImageKey(req ImageRequest) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d", req.URI, req.Width, req.Height, req.Quality)))
	return hex.EncodeToString(sum[:])
}

func normalizeImageRequest(req ImageRequest) (ImageRequest, error) {
	req.URI = strings.TrimSpace(req.URI)
	if req.URI == "" {
		return req, apperr.Validation("uri is required")
	}
	if req.Width < 0 || req.Height < 0 || req.Width > maxImageDimension || req.Height > maxImageDimension {
		return req, apperr.Validation(fmt.Sprintf("width and height must be between 0 and %d", maxImageDimension))
	}
	if req.Quality == 0 {
		req.Quality = DefaultImageQuality
	}
	if req.Quality < 1 || req.Quality > 100 {
		return req, apperr.Validation("quality must be between 1 and 100")
	}
	return req, nil
}

// Load restores the index from the store. Entries whose file disappeared are dropped.
func (s *ImageCacheService) Load(ctx context.Context) error {
	if err := os.MkdirAll(s.Opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create image cache dir: %w", err)
	}
	rows, err := s.Store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load image cache index: %w", err)
	}

	var missing []string
	s.mu.Lock()
	s.entries = make(map[string]*entity.ImageCacheEntry, len(rows))
	s.total = 0
	for i := range rows {
		e := rows[i]
		if _, err := os.Stat(e.LocalPath); err != nil {
			missing = append(missing, e.Key)
			continue
		}
		s.entries[e.Key] = &e
		s.total += e.Size
	}
	count, total := len(s.entries), s.total
	s.mu.Unlock()

	if len(missing) > 0 {
		if err := s.Store.Delete(ctx, missing...); err != nil {
			s.Log.WithError(err).Warn("drop stale image cache rows")
		}
	}
	metrics.SetImageCacheBytes(total)
	s.Log.WithFields(logrus.Fields{"entries": count, "bytes": total, "stale": len(missing)}).Info("image cache loaded")
	return nil
}

// Get returns the cached rendition, fetching and resizing it on a miss.
// LocalPath is empty when the rendition was produced but not kept (too large for
// the cache, or evicted before Get returned); Read serves those from memory.
func (s *ImageCacheService) Get(ctx context.Context, req ImageRequest) (*entity.ImageCacheEntry, error) {
	e, _, err := s.get(ctx, req)
	return e, err
}

// Read returns the rendition together with its JPEG bytes.
func (s *ImageCacheService) Read(ctx context.Context, req ImageRequest) (*entity.ImageCacheEntry, []byte, error) {
	for attempt := 0; ; attempt++ {
		e, data, err := s.get(ctx, req)
		if err != nil || data != nil {
			return e, data, err
		}
		data, err = os.ReadFile(e.LocalPath)
		if err == nil {
			return e, data, nil
		}
		if attempt > 0 || !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("read cached image: %w", err)
		}
		// evicted between lookup and read; the next round renders it again
	}
}

// get returns the entry and, on a miss, the freshly encoded bytes.
func (s *ImageCacheService) get(ctx context.Context, req ImageRequest) (*entity.ImageCacheEntry, []byte, error) {
	req, err := normalizeImageRequest(req)
	if err != nil {
		return nil, nil, err
	}
	key := ImageKey(req)
	if e := s.hit(ctx, key); e != nil {
		return e, nil, nil
	}
	raw, err := s.fetch(ctx, req.URI)
	if err != nil {
		return nil, nil, err
	}
	return s.store(ctx, req, key, raw)
}

func (s *ImageCacheService) hit(ctx context.Context, key string) *entity.ImageCacheEntry {
	if e := s.lookup(ctx, key); e != nil {
		s.hits.Add(1)
		metrics.RecordImageCache("hit")
		return e
	}
	s.misses.Add(1)
	metrics.RecordImageCache("miss")
	return nil
}

func (s *ImageCacheService) fetch(ctx context.Context, uri string) ([]byte, error) {
	raw, err := s.download(ctx, uri)
	if err != nil {
		metrics.RecordImageCache("error")
	}
	return raw, err
}

// store renders raw for req, writes the file and indexes it.
func (s *ImageCacheService) store(ctx context.Context, req ImageRequest, key string, raw []byte) (*entity.ImageCacheEntry, []byte, error) {
	encoded, w, h, err := renderImage(raw, req.Width, req.Height, req.Quality, s.Opts.MaxSourcePixels)
	if err != nil {
		metrics.RecordImageCache("error")
		return nil, nil, err
	}
	now := s.Now()
	e := &entity.ImageCacheEntry{
		Key:          key,
		URI:          req.URI,
		Timestamp:    now,
		LastAccessAt: now,
		Size:         int64(len(encoded)),
		Width:        w,
		Height:       h,
		Quality:      req.Quality,
	}
	// a rendition that alone overflows the eviction target is served but never kept
	if float64(e.Size) > float64(s.Opts.MaxBytes)*evictionTarget {
		s.Log.WithFields(logrus.Fields{"key": key, "size": e.Size}).Debug("image rendition too large to cache")
		return e, encoded, nil
	}

	path := filepath.Join(s.Opts.Dir, uuid.NewString()+".jpg")
	if err := writeFileAtomic(path, encoded); err != nil {
		return nil, nil, fmt.Errorf("write cached image: %w", err)
	}
	e.LocalPath = path
	if err := s.Store.Save(ctx, e); err != nil {
		_ = os.Remove(path)
		return nil, nil, fmt.Errorf("persist image cache entry: %w", err)
	}

	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		// a concurrent miss for the same key already stored a file
		s.total -= old.Size
		if old.LocalPath != path {
			_ = os.Remove(old.LocalPath)
		}
	}
	s.entries[key] = e
	s.total += e.Size
	over := s.total > s.Opts.MaxBytes
	total := s.total
	out := *e
	s.mu.Unlock()
	metrics.SetImageCacheBytes(total)

	if over {
		if _, err := s.cleanup(ctx, key); err != nil {
			s.Log.WithError(err).Warn("image cache cleanup after insert")
		}
	}

	// a concurrent cleanup or miss may still have replaced the file
	s.mu.Lock()
	cur, ok := s.entries[key]
	kept := ok && cur.LocalPath == path
	s.mu.Unlock()
	if !kept {
		out.LocalPath = ""
	}
	return &out, encoded, nil
}

func (s *ImageCacheService) lookup(ctx context.Context, key string) *entity.ImageCacheEntry {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, err := os.Stat(e.LocalPath); err != nil {
		delete(s.entries, key)
		s.total -= e.Size
		s.mu.Unlock()
		_ = s.Store.Delete(ctx, key)
		return nil
	}
	e.LastAccessAt = s.Now()
	out := *e
	s.mu.Unlock()

	if err := s.Store.Save(ctx, &out); err != nil {
		s.Log.WithError(err).WithField("key", key).Debug("touch image cache entry")
	}
	return &out
}

// Progressive returns a tiny low-quality placeholder together with the requested rendition.
// The source is downloaded at most once for both.
func (s *ImageCacheService) Progressive(ctx context.Context, req ImageRequest) (*ProgressiveImage, error) {
	full, err := normalizeImageRequest(req)
	if err != nil {
		return nil, err
	}
	ph := ImageRequest{
		URI:     full.URI,
		Width:   capDimension(full.Width),
		Height:  capDimension(full.Height),
		Quality: PlaceholderQuality,
	}

	var raw []byte
	out := make([]*entity.ImageCacheEntry, 2)
	for i, r := range []ImageRequest{ph, full} {
		key := ImageKey(r)
		if e := s.hit(ctx, key); e != nil {
			out[i] = e
			continue
		}
		if raw == nil {
			b, err := s.fetch(ctx, r.URI)
			if err != nil {
				return nil, err
			}
			raw = b
		}
		e, _, err := s.store(ctx, r, key, raw)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return &ProgressiveImage{Placeholder: out[0], Full: out[1]}, nil
}

func capDimension(v int) int {
	if v <= 0 || v > PlaceholderMaxDimension {
		return PlaceholderMaxDimension
	}
	return v
}

// Preload warms the cache and reports failures per URI.
func (s *ImageCacheService) Preload(ctx context.Context, uris []string, width, height, quality int) map[string]error {
	failed := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, preloadConcurrency)

	for _, u := range uris {
		u := u
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			failed[u] = ctx.Err()
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.Get(ctx, ImageRequest{URI: u, Width: width, Height: height, Quality: quality}); err != nil {
				mu.Lock()
				failed[u] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failed
}

// Cleanup expires old entries, then evicts least recently used ones until the
// cache is back under 80% of MaxBytes. It returns how many entries were removed.
func (s *ImageCacheService) Cleanup(ctx context.Context) (int, error) {
	return s.cleanup(ctx, "")
}

// cleanup never evicts keep for size; it is the entry the caller just wrote.
func (s *ImageCacheService) cleanup(ctx context.Context, keep string) (int, error) {
	now := s.Now()

	s.mu.Lock()
	var victims []*entity.ImageCacheEntry
	if s.Opts.MaxAge > 0 {
		for k, e := range s.entries {
			if now.Sub(e.Timestamp) > s.Opts.MaxAge {
				victims = append(victims, e)
				delete(s.entries, k)
				s.total -= e.Size
			}
		}
	}
	if s.total > s.Opts.MaxBytes {
		rest := make([]*entity.ImageCacheEntry, 0, len(s.entries))
		for _, e := range s.entries {
			rest = append(rest, e)
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].LastAccessAt.Before(rest[j].LastAccessAt) })
		target := int64(float64(s.Opts.MaxBytes) * evictionTarget)
		for _, e := range rest {
			if s.total <= target {
				break
			}
			if e.Key == keep {
				continue
			}
			victims = append(victims, e)
			delete(s.entries, e.Key)
			s.total -= e.Size
		}
	}
	total := s.total
	s.mu.Unlock()

	metrics.SetImageCacheBytes(total)
	if len(victims) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(victims))
	for _, e := range victims {
		keys = append(keys, e.Key)
		if err := os.Remove(e.LocalPath); err != nil && !os.IsNotExist(err) {
			s.Log.WithError(err).WithField("path", e.LocalPath).Warn("remove cached image")
		}
	}
	metrics.RecordImageEvictions(len(victims))
	s.Log.WithFields(logrus.Fields{"removed": len(victims), "bytes": total}).Info("image cache cleanup")
	if err := s.Store.Delete(ctx, keys...); err != nil {
		return len(victims), fmt.Errorf("delete image cache rows: %w", err)
	}
	return len(victims), nil
}

// Clear drops every entry and file.
func (s *ImageCacheService) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	all := s.entries
	s.entries = make(map[string]*entity.ImageCacheEntry)
	s.total = 0
	s.mu.Unlock()
	metrics.SetImageCacheBytes(0)

	keys := make([]string, 0, len(all))
	for k, e := range all {
		keys = append(keys, k)
		_ = os.Remove(e.LocalPath)
	}
	if err := s.Store.Delete(ctx, keys...); err != nil {
		return len(keys), err
	}
	return len(keys), nil
}

func (s *ImageCacheService) Stats() ImageCacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ImageCacheStats{
		Entries:    len(s.entries),
		TotalBytes: s.total,
		MaxBytes:   s.Opts.MaxBytes,
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
	}
}

// ---------------- fetch & render ----------------

func (s *ImageCacheService) allowedHost(host string) bool {
	if len(s.Opts.AllowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range s.Opts.AllowedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (s *ImageCacheService) download(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("uri must be an absolute http(s) url")
	}
	if !s.allowedHost(u.Hostname()) {
		return nil, apperr.Forbidden("image host is not allowed")
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && !s.Opts.AllowPrivateNetworks && !publicIP(ip) {
		return nil, apperr.Forbidden("image host is not a public address")
	}

	var body []byte
	err = apperr.Retry(ctx, s.Retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		res, err := s.HTTP.Do(req)
		if err != nil {
			if errors.Is(err, errPrivateAddress) {
				return apperr.Forbidden("image host is not a public address")
			}
			return apperr.Network("fetch image", err)
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode == http.StatusNotFound:
			return apperr.NotFound("image not found at source")
		case res.StatusCode == http.StatusTooManyRequests:
			return apperr.RateLimited("image source rate limited")
		case res.StatusCode >= 500:
			return apperr.Network(fmt.Sprintf("image source status %d", res.StatusCode), nil)
		case res.StatusCode != http.StatusOK:
			return apperr.Validation(fmt.Sprintf("image source status %d", res.StatusCode))
		}
		if ct := res.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
			return apperr.Validation("source is not an image")
		}

		b, err := io.ReadAll(io.LimitReader(res.Body, s.Opts.MaxDownloadBytes+1))
		if err != nil {
			return apperr.Network("read image", err)
		}
		if int64(len(b)) > s.Opts.MaxDownloadBytes {
			return apperr.Validation("image exceeds download limit")
		}
		body = b
		return nil
	})
	return body, err
}

// fitWithin scales (sw, sh) to fit inside (w, h) keeping aspect ratio; never upscales.
func fitWithin(sw, sh, w, h int) (int, int) {
	if w <= 0 && h <= 0 {
		return sw, sh
	}
	scale := 1.0
	if w > 0 && sw > w {
		scale = float64(w) / float64(sw)
	}
	if h > 0 && sh > h {
		if s := float64(h) / float64(sh); s < scale {
			scale = s
		}
	}
	nw, nh := int(float64(sw)*scale+0.5), int(float64(sh)*scale+0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// renderImage checks the declared size before decoding so a small file cannot
// expand into a huge bitmap. Output never exceeds maxImageDimension on either side.
func renderImage(raw []byte, width, height, quality int, maxPixels int64) ([]byte, int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, apperr.Validation("unsupported or corrupt image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, 0, 0, apperr.Validation(fmt.Sprintf("source image %dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, maxPixels))
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, apperr.Validation("unsupported or corrupt image")
	}
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), width, height)
	w, h = fitWithin(w, h, maxImageDimension, maxImageDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; flatten onto white
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), w, h, nil
}

var (
	errPrivateAddress  = errors.New("destination is not a public address")
	sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}
)

// publicIP reports whether ip is routable on the public internet.
func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() || sharedAddressSpace.Contains(ip))
}

// refusePrivateAddress runs after DNS resolution, so it also covers redirects
// and hostnames that resolve to internal addresses.
func refusePrivateAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || !publicIP(ip) {
		return fmt.Errorf("%w: %s", errPrivateAddress, host)
	}
	return nil
}

func newImageHTTPClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = refusePrivateAddress
	}
	return &http.Client{
		Timeout: 20 * time.Second,
		Transport: &http.Transport{
			// no proxy, the dial check has to see the real destination
			Proxy:               nil,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
