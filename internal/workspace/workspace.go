package workspace

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the workspace configuration file name looked up relative
// to the working directory.
const DefaultFile = "stagewalk.yml"

// Config is the parsed workspace configuration.
type Config struct {
	Projects   map[string]ProjectConfig   `yaml:"projects"`
	References map[string]ReferenceConfig `yaml:"references"`

	// dir is the directory of the config file; relative data paths
	// resolve against it.
	dir string
}

// ProjectConfig declares one project. Either Data names a delimited sample
// sheet, or Table holds the rows inline.
type ProjectConfig struct {
	Data    string              `yaml:"data"`
	Table   []map[string]string `yaml:"table"`
	IDCol   string              `yaml:"id_col"`
	Outputs []string            `yaml:"outputs"`
}

// ReferenceConfig declares one reference: a directory plus the files it
// exposes, keyed by local name with the literal token ALL standing in for
// the sample.
type ReferenceConfig struct {
	Dir   string            `yaml:"dir"`
	Files map[string]string `yaml:"files"`
	Group []string          `yaml:"group"`
}

// Load reads and parses a workspace configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workspace config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("workspace config %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse parses workspace configuration bytes. Unknown keys are rejected so
// typos surface instead of silently dropping configuration.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DataPath resolves a project's data file relative to the config location.
func (c *Config) DataPath(p ProjectConfig) string {
	if c.dir == "" || filepath.IsAbs(p.Data) {
		return p.Data
	}
	return filepath.Join(c.dir, p.Data)
}

// TableColumns returns the columns of an inline table, sorted for a
// deterministic load order, and the rows in declaration order.
func TableColumns(rows []map[string]string) (columns []string, cells [][]string, err error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("inline table has no rows")
	}
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, nil, fmt.Errorf("inline table row %d has %d cells, expected %d",
				i, len(row), len(columns))
		}
		cell := make([]string, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				return nil, nil, fmt.Errorf("inline table row %d is missing column '%s'", i, col)
			}
			cell[j] = v
		}
		cells = append(cells, cell)
	}
	return columns, cells, nil
}
