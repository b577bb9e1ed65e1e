/*
Package bmpstream fetches, imports and stores Windows bitmaps for devices
with little memory, decoding them incrementally as the bytes arrive.
*/
package bmpstream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/bodgit/bmpstream/bitmap"
	"github.com/bodgit/bmpstream/config"
	"github.com/bodgit/bmpstream/source"
)

type Client struct {
	db     *ImageDB
	logger *log.Logger
	config config.Config
	client *http.Client
}

func New(db *ImageDB, logger *log.Logger, c config.Config) *Client {
	return &Client{
		db:     db,
		logger: logger,
		config: c,
		client: http.DefaultClient,
	}
}

func (c *Client) options() []bitmap.Option {
	return []bitmap.Option{
		bitmap.WithLogger(c.logger),
		bitmap.WithTimeout(c.config.Timeout),
		bitmap.WithPollInterval(c.config.PollInterval),
		bitmap.WithMemoryLimit(c.config.MemoryLimit),
	}
}

// Fetch downloads the bitmap at url, decoding it as it arrives. The whole
// fetch must complete within the configured timeout.
func (c *Client) Fetch(ctx context.Context, url string) (*bitmap.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Printf("GET %s\n", url)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Printf("%s returned %s, length %d\n", url, resp.Status, resp.ContentLength)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	src := source.NewPump(resp.Body, c.config.PumpSize)
	defer src.Close()

	m, err := bitmap.Stream(ctx, src, append(c.options(), bitmap.WithLength(int(resp.ContentLength)))...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return m, nil
}

// Save stores m in the database under name
func (c *Client) Save(name string, m *bitmap.Image) error {
	if err := c.db.Put(name, m); err != nil {
		return err
	}
	c.logger.Printf("Stored \"%s\", %dx%d at %d bpp\n", name, m.Width(), m.Height(), m.BitsPerPixel())
	return nil
}
