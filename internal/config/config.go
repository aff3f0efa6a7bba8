// Package config holds the application configuration. Walk and scan settings
// are grouped into named profiles, which can be read from YAML files and
// overlaid with Unix-type environment files.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/desertwitch/fts"
)

const (
	// ModePhysical walks the physical hierarchy, not following symlinks.
	ModePhysical = "physical"

	// ModeLogical walks the logical hierarchy, following symlinks.
	ModeLogical = "logical"
)

const (
	// SortNone leaves entries in their on-disk order.
	SortNone = ""

	// SortName orders entries lexically by name.
	SortName = "name"

	// SortSize orders entries ascending by size.
	SortSize = "size"
)

var (
	// ErrProfileNotFound is returned when a requested profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidMode is returned when an unknown walk mode was given.
	ErrInvalidMode = errors.New("invalid walk mode")

	// ErrInvalidSort is returned when an unknown sort order was given.
	ErrInvalidSort = errors.New("invalid sort order")

	// ErrInvalidWorkers is returned when a negative worker count was given.
	ErrInvalidWorkers = errors.New("invalid worker count")
)

// Profile is a named preset of walk and scan settings.
type Profile struct {
	Name        string   `mapstructure:"name"`
	Roots       []string `mapstructure:"roots"`
	Mode        string   `mapstructure:"mode"`
	FollowRoots bool     `mapstructure:"follow-roots"`
	XDev        bool     `mapstructure:"xdev"`
	SeeDot      bool     `mapstructure:"dots"`
	NoStat      bool     `mapstructure:"nostat"`
	Whiteout    bool     `mapstructure:"whiteout"`
	Sort        string   `mapstructure:"sort"`
	Workers     int      `mapstructure:"workers"`
	NoHash      bool     `mapstructure:"no-hash"`
	Manifest    string   `mapstructure:"manifest"`
	LogLevel    string   `mapstructure:"log-level"`
	LogFile     string   `mapstructure:"log-file"`
}

// Config is the principal structure holding the application configuration.
type Config struct {
	DefaultProfile string    `mapstructure:"default-profile"`
	Profiles       []Profile `mapstructure:"profiles"`
}

// Validate checks the configuration for completeness and consistency.
func (c *Config) Validate() error {
	names := make(map[string]bool)

	for i := range c.Profiles {
		p := &c.Profiles[i]

		if p.Name == "" {
			return fmt.Errorf("(config-validate) %w: profile name cannot be empty", ErrInvalidProfile)
		}

		if names[p.Name] {
			return fmt.Errorf("(config-validate) %w: duplicate profile name: %s", ErrInvalidProfile, p.Name)
		}
		names[p.Name] = true

		if err := p.Validate(); err != nil {
			return fmt.Errorf("(config-validate) profile %s: %w", p.Name, err)
		}
	}

	if c.DefaultProfile != "" && !names[c.DefaultProfile] {
		return fmt.Errorf("(config-validate) %w: default profile %q", ErrProfileNotFound, c.DefaultProfile)
	}

	return nil
}

// GetProfile returns a profile by name.
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}

	return nil, fmt.Errorf("(config-profile) %w: %s", ErrProfileNotFound, name)
}

// Validate checks a single profile for consistency.
func (p *Profile) Validate() error {
	switch p.Mode {
	case "", ModePhysical, ModeLogical:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}

	switch p.Sort {
	case SortNone, SortName, SortSize:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSort, p.Sort)
	}

	if p.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, p.Workers)
	}

	return nil
}

// WalkOptions maps the profile settings onto [fts.Options]. An empty mode
// defaults to [ModePhysical].
func (p *Profile) WalkOptions() (fts.Options, error) {
	var opts fts.Options

	switch p.Mode {
	case "", ModePhysical:
		opts |= fts.Physical
	case ModeLogical:
		opts |= fts.Logical
	default:
		return 0, fmt.Errorf("(config-options) %w: %q", ErrInvalidMode, p.Mode)
	}

	if p.FollowRoots {
		opts |= fts.ComFollow
	}

	if p.XDev {
		opts |= fts.XDev
	}

	if p.SeeDot {
		opts |= fts.SeeDot
	}

	if p.NoStat {
		opts |= fts.NoStat
	}

	if p.Whiteout {
		opts |= fts.Whiteout
	}

	return opts, nil
}

// CompareFunc maps the profile sort order onto an [fts.CompareFunc]. A nil
// function is returned for [SortNone], leaving entries in on-disk order.
func (p *Profile) CompareFunc() (fts.CompareFunc, error) {
	switch p.Sort {
	case SortNone:
		return nil, nil

	case SortName:
		return func(a, b *fts.Entry) int {
			return strings.Compare(a.Name, b.Name)
		}, nil

	case SortSize:
		return func(a, b *fts.Entry) int {
			return cmp.Compare(a.Size, b.Size)
		}, nil

	default:
		return nil, fmt.Errorf("(config-compare) %w: %q", ErrInvalidSort, p.Sort)
	}
}
