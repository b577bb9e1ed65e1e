package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bodgit/bmpstream"
	"github.com/bodgit/bmpstream/bitmap"
	"github.com/bodgit/bmpstream/config"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("db") {
		cfg.DB = c.String("db")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("memory-limit") {
		cfg.MemoryLimit = c.Int("memory-limit")
	}
	return cfg, cfg.Validate()
}

func newClient(c *cli.Context) (*bmpstream.Client, func() error, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	db, err := bmpstream.NewImageDB(cfg.DB)
	if err != nil {
		return nil, nil, err
	}

	return bmpstream.New(db, newLogger(c), cfg), db.Close, nil
}

func decodeFile(c *cli.Context, file string) (*bitmap.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	return bitmap.Decode(f, bitmap.WithLogger(newLogger(c)), bitmap.WithMemoryLimit(cfg.MemoryLimit))
}

// readImage accepts anything the registered codecs understand in addition
// to bitmaps
func readImage(c *cli.Context, file string) (image.Image, error) {
	if strings.ToLower(filepath.Ext(file)) == ".bmp" {
		return decodeFile(c, file)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	return m, err
}

func writeImage(file string, m image.Image, bpp int) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch strings.ToLower(filepath.Ext(file)) {
	case ".bmp":
		return bitmap.Encode(f, m, &bitmap.Options{BitsPerPixel: bpp})
	case ".png":
		return png.Encode(f, m)
	default:
		return errors.New("output must be .bmp or .png")
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "bmpstream"
	app.Usage = "Streaming bitmap decoder for memory constrained displays"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"BMPSTREAM_CONFIG"},
			Value:   filepath.Join(cwd, config.Filename),
			Usage:   "path to configuration file",
		},
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"BMPSTREAM_DB"},
			Usage:   "path to database",
		},
		&cli.IntFlag{
			Name:    "memory-limit",
			EnvVars: []string{"BMPSTREAM_MEMORY_LIMIT"},
			Usage:   "maximum bytes of palette and pixel data per image",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "info",
			Usage:       "Show the headers of a bitmap",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, err := decodeFile(c, c.Args().First())
				if err != nil {
					return cli.NewExitError(bitmap.Describe(err), 1)
				}

				fmt.Printf("Dimensions:  %dx%d\n", m.Width(), m.Height())
				fmt.Printf("Bit depth:   %d\n", m.BitsPerPixel())
				fmt.Printf("Top down:    %t\n", m.Flipped())
				fmt.Printf("Stride:      %d\n", m.Stride())
				fmt.Printf("Data offset: %d\n", m.DataOffset())
				fmt.Printf("Data length: %d\n", m.Len())
				for i, p := range m.Palette() {
					fmt.Printf("Palette %3d: #%02x%02x%02x\n", i, p.R, p.G, p.B)
				}

				return nil
			},
		},
		{
			Name:        "pixel",
			Usage:       "Print the color of a single pixel",
			Description: "Coordinates outside the image are clamped to the nearest edge.",
			ArgsUsage:   "FILE X Y",
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				x, err := strconv.Atoi(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				y, err := strconv.Atoi(c.Args().Get(2))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				m, err := decodeFile(c, c.Args().First())
				if err != nil {
					return cli.NewExitError(bitmap.Describe(err), 1)
				}

				p := m.Pixel(x, y)
				fmt.Printf("#%02x%02x%02x alpha %d rgb565 %#04x\n", p.R, p.G, p.B, p.A, p.RGB565())

				return nil
			},
		},
		{
			Name:        "convert",
			Usage:       "Convert an image to a bitmap or a bitmap to PNG",
			Description: "Images are reduced to the requested bit depth with a median cut quantizer.",
			ArgsUsage:   "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "bits, b",
					Usage: "bits per pixel of a bitmap output, 1, 4, 8 or 24",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, err := readImage(c, c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				if err := writeImage(c.Args().Get(1), m, c.Int("bits")); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "fetch",
			Usage:       "Fetch a bitmap over HTTP",
			Description: "The bitmap is decoded as it arrives and optionally stored in the database.",
			ArgsUsage:   "URL",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "timeout, t",
					Usage: "overall time limit for the fetch",
				},
				&cli.StringFlag{
					Name:  "name, n",
					Usage: "store the bitmap under this name",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, closer, err := newClient(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				img, err := m.Fetch(context.Background(), c.Args().First())
				if err != nil {
					return cli.NewExitError(fmt.Sprintf("%s: %s", bitmap.Describe(err), err), 1)
				}

				fmt.Printf("%dx%d at %d bpp\n", img.Width(), img.Height(), img.BitsPerPixel())

				if name := c.String("name"); name != "" {
					if err := m.Save(name, img); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				return nil
			},
		},
		{
			Name:        "import",
			Usage:       "Import every bitmap beneath a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, closer, err := newClient(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				if err := m.Import(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "list",
			Usage:       "List the stored bitmaps",
			Description: "",
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				db, err := bmpstream.NewImageDB(cfg.DB)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				entries, err := db.List()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				for _, e := range entries {
					fmt.Printf("%s\t%dx%d\t%d bpp\t%d bytes\t%s\n", e.Name, e.Width, e.Height, e.BitsPerPixel, e.Size, e.SHA1)
				}

				return nil
			},
		},
		{
			Name:        "export",
			Usage:       "Write a stored bitmap to a file",
			Description: "",
			ArgsUsage:   "NAME OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "bits, b",
					Usage: "bits per pixel of a bitmap output, 1, 4, 8 or 24",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				cfg, err := loadConfig(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				db, err := bmpstream.NewImageDB(cfg.DB)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				m, err := db.Get(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if m == nil {
					return cli.NewExitError(fmt.Sprintf("no bitmap named \"%s\"", c.Args().First()), 1)
				}

				if err := writeImage(c.Args().Get(1), m, c.Int("bits")); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "delete",
			Usage:       "Remove a stored bitmap",
			Description: "",
			ArgsUsage:   "NAME",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				cfg, err := loadConfig(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				db, err := bmpstream.NewImageDB(cfg.DB)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				if err := db.Delete(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
