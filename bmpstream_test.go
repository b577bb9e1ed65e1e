package bmpstream

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bodgit/bmpstream/bitmap"
	"github.com/bodgit/bmpstream/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBitmap(t *testing.T, w, h int) []byte {
	t.Helper()

	m := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{
		color.NRGBA{0x00, 0x00, 0x00, 0xff},
		color.NRGBA{0xff, 0x00, 0x00, 0xff},
		color.NRGBA{0x00, 0xff, 0x00, 0xff},
		color.NRGBA{0x00, 0x00, 0xff, 0xff},
	})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetColorIndex(x, y, uint8((x+y)%4))
		}
	}

	b := new(bytes.Buffer)
	require.NoError(t, bitmap.Encode(b, m, nil))
	return b.Bytes()
}

func tempDir(t *testing.T) string {
	t.Helper()

	dir, err := ioutil.TempDir("", "bmpstream")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func newClient(t *testing.T, c config.Config) *Client {
	t.Helper()

	db, err := NewImageDB(filepath.Join(tempDir(t), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, log.New(ioutil.Discard, "", 0), c)
}

func TestFetch(t *testing.T) {
	b := testBitmap(t, 10, 6)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image.bmp" {
			http.NotFound(w, r)
			return
		}
		// Dribble the file out to exercise the streaming decoder
		for i := 0; i < len(b); i += 7 {
			end := i + 7
			if end > len(b) {
				end = len(b)
			}
			w.Write(b[i:end])
			w.(http.Flusher).Flush()
		}
	}))
	defer ts.Close()

	c := newClient(t, config.Default())

	m, err := c.Fetch(context.Background(), ts.URL+"/image.bmp")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Width())
	assert.Equal(t, 6, m.Height())
	assert.Equal(t, 4, m.BitsPerPixel())
	assert.Equal(t, bitmap.Color{R: 0xff}, m.Pixel(1, 0))

	require.NoError(t, c.Save("fetched", m))
	stored, err := c.db.Get("fetched")
	require.NoError(t, err)
	assert.Equal(t, m.Pixel(3, 2), stored.Pixel(3, 2))

	_, err = c.Fetch(context.Background(), ts.URL+"/missing.bmp")
	assert.Error(t, err)
}

func TestFetchTimeout(t *testing.T) {
	b := testBitmap(t, 10, 6)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(b[:30])
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.Timeout = 100 * time.Millisecond
	c := newClient(t, cfg)

	_, err := c.Fetch(context.Background(), ts.URL)
	assert.True(t, errors.Is(err, bitmap.ErrFetchTimedOut), "got %v", err)
}

func TestImport(t *testing.T) {
	dir := tempDir(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0755))

	files := map[string][]byte{
		"a.bmp":          testBitmap(t, 4, 4),
		"sub/b.BMP":      testBitmap(t, 8, 2),
		"sub/broken.bmp": []byte("BM not really a bitmap"),
		".hidden/c.bmp":  testBitmap(t, 2, 2),
		"notes.txt":      []byte("ignored"),
	}
	for name, b := range files {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), b, 0644))
	}

	cfg := config.Default()
	cfg.Workers = 3
	c := newClient(t, cfg)

	require.NoError(t, c.Import(dir))

	entries, err := c.db.List()
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "sub/b"}, names)
	assert.Equal(t, 8, entries[1].Width)
	assert.Equal(t, 2, entries[1].Height)
}
