package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, Filename)
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(os.TempDir(), "does-not-exist", Filename))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "db: /var/lib/images.db\ntimeout: 250ms\nmemory_limit: 65536\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/images.db", c.DB)
	assert.Equal(t, 250*time.Millisecond, c.Timeout)
	assert.Equal(t, 65536, c.MemoryLimit)

	// Untouched settings keep their defaults
	assert.Equal(t, Default().Workers, c.Workers)
	assert.Equal(t, Default().PollInterval, c.PollInterval)
}

func TestLoadInvalid(t *testing.T) {
	tables := map[string]string{
		"unknown key":   "colour: blue\n",
		"bad duration":  "timeout: soon\n",
		"zero workers":  "workers: 0\n",
		"negative size": "memory_limit: -1\n",
		"not yaml":      "db: [\n",
	}

	for name, contents := range tables {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, contents))
			assert.Error(t, err)
		})
	}
}
