package match

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable parts of the search pipeline.
// Supports both YAML (.yaml/.yml) and legacy key-value text (.conf) formats.
type Config struct {
	// --- Query syntax ---
	RefSigil        string `yaml:"ref_sigil"`             // prefix of literal references (default "#")
	MultimatchStyle string `yaml:"multimatch_style"`      // "prefix" (2-sword) or "suffix" (sword-2)
	MultimatchSep   string `yaml:"multimatch_separator"`  // between ordinal and name (default "-")

	// --- SQL backend ---
	SQLQueryLimit int `yaml:"sql_query_limit"` // max rows per query (default 1000)
	SQLTimeout    int `yaml:"sql_timeout"`     // query timeout in seconds (default 5)

	// --- Metrics ---
	MetricsAddr string `yaml:"metrics_addr"` // serve /metrics here, empty = disabled
}

// DefaultConfig returns a Config with the stock syntax.
func DefaultConfig() *Config {
	return &Config{
		RefSigil:        "#",
		MultimatchStyle: "prefix",
		MultimatchSep:   "-",
		SQLQueryLimit:   1000,
		SQLTimeout:      5,
	}
}

// Grammar returns the directive grammar the config selects. Unknown
// styles fall back to the prefix grammar.
func (c *Config) Grammar() DirectiveGrammar {
	switch strings.ToLower(c.MultimatchStyle) {
	case "suffix":
		return OrdinalSuffix{Sep: c.MultimatchSep}
	default:
		return OrdinalPrefix{Sep: c.MultimatchSep}
	}
}

// LoadConfig loads a config file. Format is auto-detected by extension:
//   - .yaml / .yml  -> YAML format
//   - .conf / other -> legacy key-value text format
func LoadConfig(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return loadConfigYAML(path)
	default:
		return loadConfigLegacy(path)
	}
}

func loadConfigYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return c, nil
}

func loadConfigLegacy(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val := splitKeyVal(line)
		if key == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "ref_sigil":
			c.RefSigil = val
		case "multimatch_style":
			c.MultimatchStyle = val
		case "multimatch_separator":
			c.MultimatchSep = val
		case "sql_query_limit":
			c.SQLQueryLimit = atoi(val, c.SQLQueryLimit)
		case "sql_timeout":
			c.SQLTimeout = atoi(val, c.SQLTimeout)
		case "metrics_addr":
			c.MetricsAddr = val
		default:
			// Unknown directives silently ignored for forward compatibility
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// splitKeyVal splits a line on the first whitespace (space or tab).
func splitKeyVal(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' || line[i] == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
