package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/ethtrie/pkg/core/storage/dbconfig"
	"gopkg.in/yaml.v3"
)

// Version is the version of the tool, set at build time.
var Version string

// Config is the top level struct representing ethtrie configuration.
type Config struct {
	Storage dbconfig.DBConfiguration `yaml:"Storage"`
	Trie    TrieConfiguration        `yaml:"Trie"`
	Logger  Logger                   `yaml:"Logger"`
}

// Default returns configuration used when no file is given: in-memory
// storage and a small node cache.
func Default() Config {
	return Config{
		Storage: dbconfig.DBConfiguration{
			Type: dbconfig.InMemoryDB,
		},
		Trie: TrieConfiguration{
			CacheSize: DefaultCacheSize,
		},
	}
}

// Load attempts to load the config from the given file.
func Load(path string) (Config, error) {
	configData, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return LoadBytes(configData)
}

// LoadBytes parses configuration from YAML data on top of defaults and
// validates the result. Unknown fields are rejected.
func LoadBytes(configData []byte) (Config, error) {
	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks Config for consistency.
func (c Config) Validate() error {
	switch c.Storage.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.LevelDB:
		if c.Storage.LevelDBOptions.DataDirectoryPath == "" {
			return errors.New("LevelDB storage requires DataDirectoryPath")
		}
	case dbconfig.BoltDB:
		if c.Storage.BoltDBOptions.FilePath == "" {
			return errors.New("BoltDB storage requires FilePath")
		}
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}
	return c.Trie.Validate()
}
