// Package config loads orchestrator configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config drives a queue-backed mining run.
type Config struct {
	// DataDir holds the queue database and per-repo pattern tables.
	DataDir string `yaml:"data_dir"`
	// ResultsDir receives aggregated reports.
	ResultsDir string `yaml:"results_dir"`
	// TempDir holds clone working directories.
	TempDir string `yaml:"temp_dir"`
	// RepoListFile is a newline-separated list of clone URLs.
	RepoListFile string `yaml:"repo_list_file"`
	// RulesFile optionally extends the semantic rule tables.
	RulesFile string `yaml:"rules_file"`

	CloneDepth    int           `yaml:"clone_depth"`
	CloneTimeout  time.Duration `yaml:"clone_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	StuckTimeout  time.Duration `yaml:"stuck_timeout"`
	MaxRepos      int           `yaml:"max_repos"`
	Workers       int           `yaml:"workers"`
	MaxFileSize   int64         `yaml:"max_file_size"`
	MinComplexity int           `yaml:"min_complexity"`
	TopK          int           `yaml:"top_k"`
	MinRepoCount  int           `yaml:"min_repo_count"`
	MinTotalFreq  int           `yaml:"min_total_frequency"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir:       "./data",
		ResultsDir:    "./results",
		TempDir:       "./temp",
		RepoListFile:  "./repos.txt",
		CloneDepth:    1,
		CloneTimeout:  5 * time.Minute,
		RetryAttempts: 3,
		StuckTimeout:  2 * time.Hour,
		Workers:       runtime.GOMAXPROCS(0),
		MaxFileSize:   2 * 1024 * 1024,
		MinComplexity: 2,
		TopK:          200,
		MinRepoCount:  2,
		MinTotalFreq:  5,
	}
}

// Load reads the YAML file at path over the defaults. A `.env` file in
// the working directory is applied to the environment first, and the
// PATTERNMINER_DATA_DIR / PATTERNMINER_RESULTS_DIR / PATTERNMINER_WORKERS
// variables override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if v := os.Getenv("PATTERNMINER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PATTERNMINER_RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv("PATTERNMINER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("PATTERNMINER_WORKERS: invalid value %q", v)
		}
		cfg.Workers = n
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.CloneDepth < 1 {
		return fmt.Errorf("clone_depth must be >= 1, got %d", c.CloneDepth)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be >= 1, got %d", c.RetryAttempts)
	}
	if c.MinComplexity < 1 || c.MinComplexity > 4 {
		return fmt.Errorf("min_complexity must be in [1,4], got %d", c.MinComplexity)
	}
	return nil
}

// QueuePath is the location of the queue database.
func (c *Config) QueuePath() string {
	return filepath.Join(c.DataDir, "queue.db")
}

// TablePath is where a repository's pattern table is persisted.
func (c *Config) TablePath(id int64, name string) string {
	safe := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '/' || r == '\\' || r == ':' {
			r = '_'
		}
		safe = append(safe, r)
	}
	return filepath.Join(c.DataDir, "patterns_by_repo", fmt.Sprintf("repo_%03d_%s.json", id, string(safe)))
}

// EnsureDirs creates the directories the run writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.ResultsDir, c.TempDir, filepath.Join(c.DataDir, "patterns_by_repo")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
