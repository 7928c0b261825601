package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_WritesDefaults(t *testing.T) {
	for _, name := range []string{"quatrain.json", "quatrain.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "conf", name)

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, Default(), cfg)

			data, err := os.ReadFile(path)
			require.NoError(t, err, "default config should be written")

			var written Config
			if isYAML(path) {
				require.NoError(t, yaml.Unmarshal(data, &written))
			} else {
				require.NoError(t, json.Unmarshal(data, &written))
			}
			assert.Equal(t, *Default(), written)

			again, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, again)
		})
	}
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quatrain.yml")
	content := `
model:
  order: 3
store:
  backend: redis
  redis:
    addr: "10.0.0.1:6379"
    ttl_seconds: 60
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Model.Order)
	assert.Equal(t, "markov_chain", cfg.Model.Name, "unset fields keep their defaults")
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "10.0.0.1:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 60, cfg.Store.Redis.TTLSeconds)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join("Dataset", "Cleaned", "cleaned_poems.json"), cfg.Corpus.CleanedPath())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad.json":    `{"model": {"order": 0}}`,
		"store.json":  `{"store": {"backend": "s3"}}`,
		"temp.yaml":   "generate:\n  temperature: -1\n",
		"syntax.json": `{"model":`,
	}
	dir := t.TempDir()
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}
