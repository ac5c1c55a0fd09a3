package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Profile is the terminal client's own settings file. It remembers which
// ledger session the terminal works on and may override a few settings
// that would otherwise come from the environment.
type Profile struct {
	Ledger LedgerProfile `toml:"ledger"`
}

type LedgerProfile struct {
	Session        string `toml:"session,omitempty"`
	DBPath         string `toml:"db_path,omitempty"`
	CurrencySymbol string `toml:"currency_symbol,omitempty"`
}

// ProfileDir follows XDG_CONFIG_HOME, falling back to ~/.config/gastos.
func ProfileDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gastos")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gastos")
}

func ProfilePath() string {
	return filepath.Join(ProfileDir(), "cli.toml")
}

// LoadProfile reads the profile. A missing file is an empty profile.
func LoadProfile() (Profile, error) {
	var p Profile
	data, err := os.ReadFile(ProfilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("reading profile: %w", err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing profile %s: %w", ProfilePath(), err)
	}
	return p, nil
}

func SaveProfile(p Profile) error {
	if err := os.MkdirAll(ProfileDir(), 0o755); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}
	f, err := os.OpenFile(ProfilePath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(p)
}

// Apply fills cfg from the profile where the environment left the built-in
// default: an exported SQLITE_DB_PATH or CURRENCY_SYMBOL wins over the file.
func (p Profile) Apply(cfg *Config) {
	if _, set := os.LookupEnv("SQLITE_DB_PATH"); !set && p.Ledger.DBPath != "" {
		cfg.SQLiteDBPath = p.Ledger.DBPath
	}
	if _, set := os.LookupEnv("CURRENCY_SYMBOL"); !set && p.Ledger.CurrencySymbol != "" {
		cfg.CurrencySymbol = p.Ledger.CurrencySymbol
	}
}
