package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Ligands  LigandsConfig  `yaml:"ligands"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Docking  DockingConfig  `yaml:"docking"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	// Driver selects the store backend: "postgres" or "sqlite".
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type LigandsConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type PipelineConfig struct {
	TickIntervalMs int  `yaml:"tick_interval_ms"`
	Lenient        bool `yaml:"lenient"`
	IncludeTies    bool `yaml:"include_ties"`
}

// DockingConfig holds the default table schema for submitted runs.
// Runs may override any of these per submission; the defaults match
// the HOPE-Box / Vina pipeline that feeds this service.
type DockingConfig struct {
	SynthKeyColumn    string `yaml:"synth_key_column"`
	AffinityKeyColumn string `yaml:"affinity_key_column"`
	ObjectiveA        string `yaml:"objective_a"`
	ObjectiveB        string `yaml:"objective_b"`
	StructureSuffix   string `yaml:"structure_suffix"`
	SynthSuffix       string `yaml:"synth_suffix"`
	AffinitySuffix    string `yaml:"affinity_suffix"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Pipeline.TickIntervalMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "frontier.db",
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Ligands: LigandsConfig{
			URL: "http://localhost:8730",
		},
		Pipeline: PipelineConfig{
			TickIntervalMs: 2000,
		},
		Docking: DockingConfig{
			SynthKeyColumn:    "filename",
			AffinityKeyColumn: "ligand",
			ObjectiveA:        "SA_score",
			ObjectiveB:        "affinity_kcal/mol",
			StructureSuffix:   ".sdf",
			SynthSuffix:       "_sa",
			AffinitySuffix:    "_vina",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FRONTIER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("FRONTIER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("FRONTIER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("FRONTIER_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FRONTIER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FRONTIER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FRONTIER_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("FRONTIER_LIGANDS_URL"); v != "" {
		cfg.Ligands.URL = v
	}
	if v := os.Getenv("FRONTIER_LIGANDS_TOKEN"); v != "" {
		cfg.Ligands.Token = v
	}
	if v := os.Getenv("FRONTIER_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.TickIntervalMs = n
		}
	}
	if v := os.Getenv("FRONTIER_LENIENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.Lenient = b
		}
	}
	if v := os.Getenv("FRONTIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
