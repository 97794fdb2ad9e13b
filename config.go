package hierarchy

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/syssam/hierarchy/dialect"

	"gopkg.in/yaml.v3"
)

// capabilityFile is the YAML layout of capability overrides:
//
//	capabilities:
//	  - dialect: cockroachdb
//	    min_version: "20.1"
//	    strategy: recursive_cte
type capabilityFile struct {
	Capabilities []Capability `yaml:"capabilities"`
}

// LoadCapabilities reads capability overrides from r and returns the
// default table with the overrides applied.
func LoadCapabilities(r io.Reader) (CapabilityTable, error) {
	var f capabilityFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("hierarchy: decoding capabilities: %w", err)
	}
	over := make(CapabilityTable, len(f.Capabilities))
	for i, c := range f.Capabilities {
		if c.Dialect == "" {
			return nil, fmt.Errorf("hierarchy: capability %d: missing dialect", i)
		}
		if c.Strategy == 0 {
			return nil, fmt.Errorf("hierarchy: capability %q: missing strategy", c.Dialect)
		}
		c.Dialect = dialect.Normalize(c.Dialect)
		over[c.Dialect] = c
	}
	return DefaultCapabilities().Merge(over), nil
}

// LoadCapabilitiesFile is like LoadCapabilities but reads the named file.
func LoadCapabilitiesFile(path string) (CapabilityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCapabilities(f)
}
