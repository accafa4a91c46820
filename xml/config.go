package xml

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultMaxTokenLength is used when a Lexer is built with MaxTokenLength
// left at zero. 8 KiB matches the size recommended by the grammar this
// engine implements.
const DefaultMaxTokenLength = 8 * 1024

// Config is the single tunable the core exposes: the byte ceiling for a
// Name, AttributeValue, or reference body. Text tokens are split at this
// boundary instead of failing (see Lexer.NextToken).
type Config struct {
	MaxTokenLength int `yaml:"max_token_length"`
}

func defaultConfig() Config {
	return Config{MaxTokenLength: DefaultMaxTokenLength}
}

// LoadConfigFile loads a Config from a YAML file such as:
//
//	max_token_length: 16384
//
// A missing file is not an error; the default Config is returned.
func LoadConfigFile(path string) (Config, error) {
	cfg := defaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config file %s", path)
	}
	if cfg.MaxTokenLength <= 0 {
		cfg.MaxTokenLength = DefaultMaxTokenLength
	}
	return cfg, nil
}
