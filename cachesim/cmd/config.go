package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

// simConfig describes the caches to simulate side by side.
//
//	caches:
//	  - name: L1
//	    byte_size: 16384
//	    ways: 4
//	    log2_block_size: 6
type simConfig struct {
	Caches []cacheConfig `yaml:"caches"`
}

type cacheConfig struct {
	Name          string `yaml:"name"`
	ByteSize      uint64 `yaml:"byte_size"`
	Ways          int    `yaml:"ways"`
	Log2BlockSize int    `yaml:"log2_block_size"`
}

func loadConfig(filename string) (*simConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := &simConfig{}

	err = yaml.UnmarshalStrict(data, c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return c, nil
}

// builders turns the configuration into one validated builder per cache.
// Fields left out take the builder defaults.
func (c *simConfig) builders() ([]namedBuilder, error) {
	if len(c.Caches) == 0 {
		return nil, fmt.Errorf("config does not define any cache")
	}

	seen := make(map[string]bool)
	builders := make([]namedBuilder, 0, len(c.Caches))

	for i, cc := range c.Caches {
		name := cc.Name
		if name == "" {
			name = sim.BuildNameWithIndex("", "Cache", i)
		}

		err := sim.ValidateName(name)
		if err != nil {
			return nil, err
		}

		if seen[name] {
			return nil, fmt.Errorf("duplicated cache name %q", name)
		}
		seen[name] = true

		b := cache.MakeBuilder()
		if cc.ByteSize != 0 {
			b = b.WithByteSize(cc.ByteSize)
		}

		if cc.Ways != 0 {
			b = b.WithWayAssociativity(cc.Ways)
		}

		if cc.Log2BlockSize != 0 {
			b = b.WithLog2BlockSize(cc.Log2BlockSize)
		}

		err = b.Validate()
		if err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}

		builders = append(builders, namedBuilder{name: name, builder: b})
	}

	return builders, nil
}

type namedBuilder struct {
	name    string
	builder cache.Builder
}
