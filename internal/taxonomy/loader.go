package taxonomy

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type fileSchema struct {
	Proteins []Entry `koanf:"proteins"`
}

// LoadFile reads a YAML table of the form
//
//	proteins:
//	  - id: poisson
//	    label: Poisson
//	    icon: "🐟"
//	    category: fish
//
// An empty path returns Default().
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load taxonomy file %s: %w", path, err)
	}

	var schema fileSchema
	if err := k.Unmarshal("", &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taxonomy file %s: %w", path, err)
	}
	if len(schema.Proteins) == 0 {
		return nil, fmt.Errorf("taxonomy file %s declares no proteins", path)
	}

	return New(schema.Proteins)
}
