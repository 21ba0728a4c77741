package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/mtree"
	"github.com/ValentinKolb/mtree/lib/registry"
	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/ValentinKolb/mtree/lib/tree/engines/memlog"
	"github.com/ValentinKolb/mtree/lib/tree/engines/sqlog"
)

// --------------------------------------------------------------------------
// Backend Types
// --------------------------------------------------------------------------

type BackendType string

const (
	BackendSQLite BackendType = "sqlite" // one SQLite database per feed
	BackendMemory BackendType = "memory" // in-memory feeds, snapshotted to the data dir on close
)

// --------------------------------------------------------------------------
// Configuration struct
// --------------------------------------------------------------------------

// Config holds all configuration parameters of an mtree process.
type Config struct {
	// Storage
	DataDir string
	Backend BackendType

	// Engine
	Codec      codec.Implementation
	Offset     uint64
	MissPolicy string

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns the configuration used when no flags are set
func DefaultConfig() Config {
	return Config{
		DataDir:    "./mtree-data",
		Backend:    BackendSQLite,
		Codec:      codec.ImplBinary,
		MissPolicy: string(mtree.MissNotFound),
		LogLevel:   "info",
	}
}

// Validate checks all enumerated fields
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid backend %q (sqlite|memory)", c.Backend)
	}
	if _, err := codec.New(c.Codec); err != nil {
		return err
	}
	if _, err := mtree.ParseMissPolicy(c.MissPolicy); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	return nil
}

// OpenBackend opens the configured storage backend
func (c *Config) OpenBackend() (tree.Backend, error) {
	switch c.Backend {
	case BackendSQLite:
		return sqlog.NewBackend(c.DataDir), nil
	case BackendMemory:
		b, err := memlog.OpenBackend(c.DataDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("invalid backend %q", c.Backend)
	}
}

// OpenRegistry opens the backend and wraps it in a registry configured with the
// engine settings. The caller must close the registry.
func (c *Config) OpenRegistry() (*registry.Registry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	backend, err := c.OpenBackend()
	if err != nil {
		return nil, err
	}
	cdc, err := codec.New(c.Codec)
	if err != nil {
		return nil, err
	}
	policy, err := mtree.ParseMissPolicy(c.MissPolicy)
	if err != nil {
		return nil, err
	}
	return registry.New(backend, &registry.Options{
		Codec:      cdc,
		MissPolicy: policy,
		Offset:     c.Offset,
	}), nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Backend", string(c.Backend))

	addSection("Engine")
	addField("Codec", string(c.Codec))
	addField("Offset", strconv.FormatUint(c.Offset, 10))
	addField("Miss Policy", c.MissPolicy)

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
