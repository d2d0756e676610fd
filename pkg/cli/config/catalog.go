package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Catalog holds the CLI flag selecting a seed catalog file
type Catalog struct {
	path string
}

func (x *Catalog) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "seed-catalog",
			Usage:       "TOML file replacing the built-in task seed catalog",
			Category:    "Catalog",
			Destination: &x.path,
			Sources:     cli.EnvVars("COMPLYTRACK_SEED_CATALOG"),
		},
	}
}

func (x Catalog) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the catalog file, or returns the built-in catalog if no file is set
func (x *Catalog) Configure() (*model.Catalog, error) {
	if x.path == "" {
		return model.DefaultCatalog(), nil
	}
	return LoadCatalog(x.path)
}

// catalogFile is the TOML layout of a seed catalog:
//
//	[[entry]]
//	name = "data-breach"
//	keywords = ["data breach"]
//	tasks = [{ label = "Isolate affected systems", weight = 20 }, ...]
//
//	[[default]]
//	label = "Define mitigation plan"
//	weight = 20
type catalogFile struct {
	Entries []model.CatalogEntry `toml:"entry"`
	Default []model.TaskTemplate `toml:"default"`
}

// LoadCatalog reads and validates a seed catalog file. Without a [[default]]
// list the built-in default tasks are used.
func LoadCatalog(path string) (*model.Catalog, error) {
	// #nosec G304 - path is provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "seed catalog file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read seed catalog", goerr.V(ConfigPathKey, path))
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load seed catalog", goerr.V(ConfigPathKey, path))
	}
	return catalog, nil
}

// ParseCatalog decodes and validates a TOML seed catalog
func ParseCatalog(data []byte) (*model.Catalog, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse seed catalog", goerr.V("error", err.Error()))
	}

	catalog := &model.Catalog{
		Entries: file.Entries,
		Default: file.Default,
	}
	if len(catalog.Default) == 0 {
		catalog.Default = model.DefaultCatalog().Default
	}

	// Seeded tasks always start open
	for i := range catalog.Entries {
		for j := range catalog.Entries[i].Tasks {
			catalog.Entries[i].Tasks[j].Done = false
		}
	}
	for i := range catalog.Default {
		catalog.Default[i].Done = false
	}

	if err := catalog.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid seed catalog", goerr.V("error", err.Error()))
	}
	return catalog, nil
}
