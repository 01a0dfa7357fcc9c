package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "agenda.db"

	appDirName = "agenda"
)

type Keymap struct {
	Quit      string `toml:"quit"`
	Add       string `toml:"add"`
	Up        string `toml:"up"`
	Down      string `toml:"down"`
	Toggle    string `toml:"toggle"`
	Delete    string `toml:"delete"`
	Duplicate string `toml:"duplicate"`
	Edit      string `toml:"edit"`
	Search    string `toml:"search"`
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
	NextScope string `toml:"next_scope"`
	Status    string `toml:"status"`
	Priority  string `toml:"priority"`
	Category  string `toml:"category"`
	Theme     string `toml:"theme"`
	View      string `toml:"view"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	CacheDir      string `toml:"cache_dir"`
	DefaultFilter string `toml:"default_filter"`
	DefaultScope  string `toml:"default_scope"`
	CalendarID    string `toml:"calendar_id"`
	Keys          Keymap `toml:"keys"`
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}
	return cfg, nil
}

// ResolveConfigPath locates the config file under the user config dir,
// creating the directory if needed. It falls back to the working directory
// when no home is resolvable.
func ResolveConfigPath() string {
	dir, err := Dir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, DefaultConfigFileName)
}

// Dir returns the application's config directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func write(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath(),
		CacheDir:      defaultCacheDir(),
		DefaultFilter: "all",
		DefaultScope:  "all",
		CalendarID:    "primary",
		Keys: Keymap{
			Quit:      "q",
			Add:       "a",
			Up:        "k",
			Down:      "j",
			Toggle:    " ",
			Delete:    "d",
			Duplicate: "y",
			Edit:      "e",
			Search:    "/",
			Confirm:   "enter",
			Cancel:    "esc",
			NextScope: "tab",
			Status:    "s",
			Priority:  "p",
			Category:  "c",
			Theme:     "t",
			View:      "v",
		},
	}
}

func defaultDBPath() string {
	dir, err := Dir()
	if err != nil {
		return DefaultDBName
	}
	return filepath.Join(dir, DefaultDBName)
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return "cache"
	}
	return filepath.Join(base, appDirName)
}
