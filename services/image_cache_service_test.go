package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/heritageplates/backend/pkg/apperr"
	"github.com/heritageplates/backend/pkg/logger"
	"github.com/heritageplates/backend/pkg/testdb"
	"github.com/heritageplates/backend/repository"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8((x + y) * 3), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeader is a valid PNG signature and IHDR declaring w x h, with no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // 8-bit grayscale

	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&b, binary.BigEndian, uint32(len(ihdr)))
	crc := crc32.NewIEEE()
	_, _ = crc.Write([]byte("IHDR"))
	_, _ = crc.Write(ihdr)
	b.WriteString("IHDR")
	b.Write(ihdr)
	_ = binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

type imageFixture struct {
	svc   *ImageCacheService
	db    *gorm.DB
	srv   *httptest.Server
	hits  *atomic.Int32
	dir   string
	clock *time.Time
}

func newImageFixture(t *testing.T, opts ImageCacheOptions) *imageFixture {
	t.Helper()
	pic := testPNG(t, 200, 100)
	wide := testPNG(t, 5000, 1)
	huge := pngHeader(30000, 30000)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/missing.png":
			http.NotFound(w, r)
		case "/wide.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(wide)
		case "/huge.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(huge)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pic)
		}
	}))
	t.Cleanup(srv.Close)

	db := testdb.Open(t)
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 50 << 20
	}
	// the test server listens on loopback
	opts.AllowPrivateNetworks = true
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &imageFixture{db: db, srv: srv, hits: &hits, dir: opts.Dir, clock: &now}
	f.svc = f.open(t, opts)
	return f
}

func (f *imageFixture) open(t *testing.T, opts ImageCacheOptions) *ImageCacheService {
	t.Helper()
	svc := NewImageCacheService(repository.NewImageCacheRepository(f.db), opts, logger.Discard())
	svc.Retry = apperr.Policy{MaxAttempts: 1}
	svc.Now = func() time.Time { return *f.clock }
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func (f *imageFixture) tick(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *imageFixture) url(path string) string { return f.srv.URL + path }

func TestImageGetResizesAndCaches(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()

	e, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/dish.png"), Width: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, e.Width)
	assert.Equal(t, 25, e.Height)
	assert.Equal(t, DefaultImageQuality, e.Quality)

	raw, err := os.ReadFile(e.LocalPath)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, int64(len(raw)), e.Size)

	again, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/dish.png"), Width: 50})
	require.NoError(t, err)
	assert.Equal(t, e.LocalPath, again.LocalPath)
	assert.Equal(t, int32(1), f.hits.Load())

	st := f.svc.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestImageNeverUpscales(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	e, err := f.svc.Get(context.Background(), ImageRequest{URI: f.url("/dish.png"), Width: 800, Height: 800})
	require.NoError(t, err)
	assert.Equal(t, 200, e.Width)
	assert.Equal(t, 100, e.Height)
}

func TestFitWithin(t *testing.T) {
	cases := []struct{ sw, sh, w, h, ew, eh int }{
		{200, 100, 0, 0, 200, 100},
		{200, 100, 100, 0, 100, 50},
		{200, 100, 0, 20, 40, 20},
		{200, 100, 50, 50, 50, 25},
		{100, 400, 64, 64, 16, 64},
		{1000, 1, 10, 0, 10, 1},
	}
	for _, c := range cases {
		w, h := fitWithin(c.sw, c.sh, c.w, c.h)
		assert.Equal(t, [2]int{c.ew, c.eh}, [2]int{w, h}, "%+v", c)
	}
}

func TestImageKeyDependsOnRendition(t *testing.T) {
	a := ImageKey(ImageRequest{URI: "https://x/y.png", Width: 10, Quality: 80})
	assert.Len(t, a, 64)
	assert.Equal(t, a, ImageKey(ImageRequest{URI: "https://x/y.png", Width: 10, Quality: 80}))
	assert.NotEqual(t, a, ImageKey(ImageRequest{URI: "https://x/y.png", Width: 11, Quality: 80}))
	assert.NotEqual(t, a, ImageKey(ImageRequest{URI: "https://x/y.png", Width: 10, Quality: 20}))
}

func TestImageRequestValidation(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()

	for _, req := range []ImageRequest{
		{URI: ""},
		{URI: "ftp://example.com/a.png"},
		{URI: "/relative.png"},
		{URI: f.url("/a.png"), Width: -1},
		{URI: f.url("/a.png"), Quality: 101},
		{URI: f.url("/page.html")},
	} {
		_, err := f.svc.Get(ctx, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%+v", req)
	}

	_, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/missing.png")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestImageHostAllowList(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{AllowedHosts: []string{"images.example.com"}})
	_, err := f.svc.Get(context.Background(), ImageRequest{URI: f.url("/dish.png")})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	assert.Equal(t, int32(0), f.hits.Load())

	assert.True(t, f.svc.allowedHost("cdn.images.example.com"))
	assert.False(t, f.svc.allowedHost("evilimages.example.com.attacker.io"))
}

func TestImageEvictsLeastRecentlyUsed(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()

	paths := map[string]string{}
	var size int64
	for _, p := range []string{"/a.png", "/b.png", "/c.png"} {
		e, err := f.svc.Get(ctx, ImageRequest{URI: f.url(p)})
		require.NoError(t, err)
		paths[p] = e.LocalPath
		size = e.Size
		f.tick(time.Minute)
	}
	// a becomes the most recently used
	_, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/a.png")})
	require.NoError(t, err)

	f.svc.Opts.MaxBytes = 2 * size
	n, err := f.svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st := f.svc.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.LessOrEqual(t, float64(st.TotalBytes), float64(f.svc.Opts.MaxBytes)*evictionTarget)
	assert.FileExists(t, paths["/a.png"])
	assert.NoFileExists(t, paths["/b.png"])
	assert.NoFileExists(t, paths["/c.png"])
}

func TestImageCleanupExpiresOldEntries(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{MaxAge: time.Hour})
	ctx := context.Background()

	old, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/old.png")})
	require.NoError(t, err)
	f.tick(90 * time.Minute)
	fresh, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/fresh.png")})
	require.NoError(t, err)

	n, err := f.svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old.LocalPath)
	assert.FileExists(t, fresh.LocalPath)
}

func TestImageIndexSurvivesRestart(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()
	req := ImageRequest{URI: f.url("/dish.png"), Width: 80}

	first, err := f.svc.Get(ctx, req)
	require.NoError(t, err)
	gone, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/gone.png")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(gone.LocalPath))

	restarted := f.open(t, f.svc.Opts)
	st := restarted.Stats()
	assert.Equal(t, 1, st.Entries, "entries without a file are dropped on load")

	second, err := restarted.Get(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.LocalPath, second.LocalPath)
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestImageProgressive(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	out, err := f.svc.Progressive(context.Background(), ImageRequest{URI: f.url("/dish.png"), Width: 160})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.hits.Load(), "one download for both variants")
	assert.Equal(t, 2, f.svc.Stats().Entries)
	assert.Equal(t, PlaceholderQuality, out.Placeholder.Quality)
	assert.LessOrEqual(t, out.Placeholder.Width, PlaceholderMaxDimension)
	assert.Equal(t, 160, out.Full.Width)
	assert.NotEqual(t, out.Placeholder.Key, out.Full.Key)
}

func TestImagePreloadAndClear(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()

	failed := f.svc.Preload(ctx, []string{f.url("/1.png"), f.url("/2.png"), f.url("/missing.png")}, 100, 0, 0)
	require.Len(t, failed, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(failed[f.url("/missing.png")]))
	assert.Equal(t, 2, f.svc.Stats().Entries)

	n, err := f.svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, f.svc.Stats().Entries)
	assert.Equal(t, int64(0), f.svc.Stats().TotalBytes)
}

func TestImageRejectsOversizedSource(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()

	_, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/huge.png")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, f.svc.Stats().Entries)

	tight := f.open(t, ImageCacheOptions{Dir: f.dir, MaxBytes: 50 << 20, MaxSourcePixels: 10_000, AllowPrivateNetworks: true})
	_, err = tight.Get(ctx, ImageRequest{URI: f.url("/dish.png")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "200x100 is over a 10k pixel budget")
}

func TestImageOutputIsBoundedWithoutRequestedSize(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	e, err := f.svc.Get(context.Background(), ImageRequest{URI: f.url("/wide.png")})
	require.NoError(t, err)
	assert.Equal(t, maxImageDimension, e.Width)
	assert.Equal(t, 1, e.Height)
}

func TestImageTooLargeToKeepIsStillServed(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{MaxBytes: 1000})
	ctx := context.Background()
	req := ImageRequest{URI: f.url("/dish.png")}

	e, err := f.svc.Get(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, e.LocalPath)
	assert.Positive(t, e.Size)
	assert.Equal(t, 0, f.svc.Stats().Entries)

	e, data, err := f.svc.Read(ctx, req)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, [2]int{200, 100}, [2]int{cfg.Width, cfg.Height})
	assert.Equal(t, int64(len(data)), e.Size)

	files, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestImageInsertCleanupKeepsFreshEntry(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()

	first, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/a.png")})
	require.NoError(t, err)
	// room for one rendition, not two
	f.svc.Opts.MaxBytes = first.Size * 3 / 2
	f.tick(time.Minute)

	second, err := f.svc.Get(ctx, ImageRequest{URI: f.url("/b.png")})
	require.NoError(t, err)
	require.NotEmpty(t, second.LocalPath)
	assert.FileExists(t, second.LocalPath)
	assert.NoFileExists(t, first.LocalPath)
	assert.Equal(t, 1, f.svc.Stats().Entries)
}

func TestImageReadServesCachedBytes(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	ctx := context.Background()
	req := ImageRequest{URI: f.url("/dish.png"), Width: 40}

	e, fresh, err := f.svc.Read(ctx, req)
	require.NoError(t, err)
	_, cached, err := f.svc.Read(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, fresh, cached)
	assert.Equal(t, int32(1), f.hits.Load())

	// file removed behind the index: Read renders again instead of failing
	require.NoError(t, os.Remove(e.LocalPath))
	_, again, err := f.svc.Read(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, again)
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestImageRefusesPrivateDestinations(t *testing.T) {
	f := newImageFixture(t, ImageCacheOptions{})
	svc := NewImageCacheService(repository.NewImageCacheRepository(f.db), ImageCacheOptions{Dir: f.dir, MaxBytes: 50 << 20}, logger.Discard())
	svc.Retry = apperr.Policy{MaxAttempts: 1}
	ctx := context.Background()

	u, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	for _, uri := range []string{
		f.url("/dish.png"),                        // 127.0.0.1 literal
		"http://localhost:" + port + "/dish.png",  // resolves to loopback
		"http://169.254.169.254/latest/meta-data", // link-local metadata endpoint
	} {
		_, err := svc.Get(ctx, ImageRequest{URI: uri})
		assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err), uri)
	}
	assert.Equal(t, int32(0), f.hits.Load())
}

func TestPublicIP(t *testing.T) {
	cases := map[string]bool{
		"8.8.8.8":         true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.1":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"::1":             false,
		"fe80::1":         false,
		"fd00::1":         false,
	}
	for ip, want := range cases {
		assert.Equal(t, want, publicIP(net.ParseIP(ip)), ip)
	}
}
