package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/common"
	"github.com/ValentinKolb/mtree/lib/mtree"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStorageFlags adds the storage and engine flags to a command
func SetupStorageFlags(cmd *cobra.Command) {
	def := common.DefaultConfig()

	key := "data-dir"
	cmd.PersistentFlags().String(key, def.DataDir, WrapString("Directory the feeds are stored in"))

	key = "backend"
	cmd.PersistentFlags().String(key, string(def.Backend), WrapString("Storage backend for the feeds (sqlite, memory). The memory backend snapshots all feeds to the data dir on exit"))

	key = "codec"
	cmd.PersistentFlags().String(key, string(def.Codec), WrapString("Codec for the values written to the feeds (binary, cbor). Linked trees must use the same codec"))

	key = "offset"
	cmd.PersistentFlags().Uint64(key, def.Offset, WrapString("Number of log entries a feed may already have when parents are declared"))

	key = "miss-policy"
	cmd.PersistentFlags().String(key, def.MissPolicy, WrapString("What get reports for paths that exist nowhere (notfound, empty)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, def.LogLevel, WrapString("Log level (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("mtree")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConfig reads the configuration from viper
func GetConfig() *common.Config {
	return &common.Config{
		DataDir:    viper.GetString("data-dir"),
		Backend:    common.BackendType(viper.GetString("backend")),
		Codec:      codec.Implementation(viper.GetString("codec")),
		Offset:     viper.GetUint64("offset"),
		MissPolicy: viper.GetString("miss-policy"),
		LogLevel:   viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// ParseTarget parses a target of the form KEY[@VERSION][:PATH]
func ParseTarget(s string) (mtree.Target, error) {
	var t mtree.Target
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		s, t.Path = s[:idx], s[idx+1:]
		if t.Path == "" {
			return t, fmt.Errorf("empty path in target")
		}
	}
	if idx := strings.IndexByte(s, '@'); idx >= 0 {
		v, err := strconv.ParseUint(s[idx+1:], 10, 64)
		if err != nil {
			return t, fmt.Errorf("version must be a number: %w", err)
		}
		if v == 0 {
			return t, fmt.Errorf("version 0 is the live version, omit @VERSION instead")
		}
		s, t.Version = s[:idx], v
	}
	if s == "" {
		return t, fmt.Errorf("target has no key")
	}
	t.Key = s
	return t, nil
}

// FormatTarget is the inverse of ParseTarget
func FormatTarget(key string, version uint64, path string) string {
	s := key
	if version != 0 {
		s += "@" + strconv.FormatUint(version, 10)
	}
	if path != "" {
		s += ":" + path
	}
	return s
}
