package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActivityConfig describes one polled activity and its channel binding.
type ActivityConfig struct {
	// ID is the activity identifier used in commands and storage keys.
	ID string `yaml:"id" json:"id"`
	// Channel is the transport-level channel the activity's poll lives in.
	Channel string `yaml:"channel" json:"channel"`
	// PollTitle is the headline of the weekly poll message.
	PollTitle string `yaml:"poll_title" json:"poll_title"`
}

// Config is the top-level application configuration.
type Config struct {
	// DataDir holds the durable record files.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// BackupDir receives timestamped copies of the record files.
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`

	// LogFile, if set, mirrors log output to a file.
	LogFile string `yaml:"log_file,omitempty" json:"log_file,omitempty"`

	// DefaultTimezone is the fallback zone for people who never ran
	// settz (IANA name or UTC).
	DefaultTimezone string `yaml:"default_timezone" json:"default_timezone"`

	// Activities lists the polled contexts. The first entry doubles as
	// the default activity for commands that omit one.
	Activities []ActivityConfig `yaml:"activities" json:"activities"`

	// QuickStart/QuickEnd bound the window recorded by quick reactions,
	// "HH:MM" 24-hour.
	QuickStart string `yaml:"quick_start" json:"quick_start"`
	QuickEnd   string `yaml:"quick_end" json:"quick_end"`

	// PollCheckCron schedules the auto-open check; must run at least
	// once per minute of the weekly boundary window.
	PollCheckCron string `yaml:"poll_check" json:"poll_check"`

	// BackupCron schedules periodic record backups.
	BackupCron string `yaml:"backup" json:"backup"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:         "./data",
		BackupDir:       "./backup",
		DefaultTimezone: "UTC",
		Activities: []ActivityConfig{
			{ID: "BF6", Channel: "", PollTitle: "BF6 Weekly Availability"},
		},
		QuickStart:    "18:00",
		QuickEnd:      "23:00",
		PollCheckCron: "* * * * *",
		BackupCron:    "0 */6 * * *",
	}
}

// DefaultActivity returns the identifier commands fall back to.
func (c *Config) DefaultActivity() string {
	if len(c.Activities) == 0 {
		return ""
	}
	return c.Activities[0].ID
}

// Normalize fills in missing/zero values so partially-filled configs
// still behave.
func (c *Config) Normalize() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.BackupDir == "" {
		c.BackupDir = "./backup"
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = "UTC"
	}
	if c.QuickStart == "" {
		c.QuickStart = "18:00"
	}
	if c.QuickEnd == "" {
		c.QuickEnd = "23:00"
	}
	if c.PollCheckCron == "" {
		c.PollCheckCron = "* * * * *"
	}
	if c.BackupCron == "" {
		c.BackupCron = "0 */6 * * *"
	}
	if c.Activities == nil {
		c.Activities = []ActivityConfig{}
	}
	for i := range c.Activities {
		a := &c.Activities[i]
		a.ID = strings.ToUpper(strings.TrimSpace(a.ID))
		if a.PollTitle == "" {
			a.PollTitle = a.ID + " Weekly Availability"
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there
//     (0600) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions, creating the parent directory as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".pixelbot-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
