package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/solatis/fieldcomp/internal/compose"
	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Definition keys.
 *
 * Definitions live under the datatype name, one prefix per mode:
 *
 *   <dt>.data.combine.*    virtual definitions
 *   <dt>.data.composite.*  composite definitions
 *
 * name and fields are parallel lists, one entry per definition. Every other
 * key is either a single value applied to all definitions or a list of the
 * same length. Lists are YAML sequences or comma strings; commas inside
 * quoted literals do not split.
 */

// Mode key prefixes under a datatype.
const (
	virtualPrefix   = "data.combine"
	compositePrefix = "data.composite"
)

// Top-level keys that are never datatypes.
var reservedKeys = map[string]bool{"server": true, "engine": true, "logging": true}

// LoadConfig loads configuration and definitions from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 50061)
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("engine.on_conflict", "fail")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Bind environment variables with FIELDCOMP_ prefix
	v.SetEnvPrefix("FIELDCOMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	datatypes, err := stringList(v, "engine.datatypes")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Engine: EngineConfig{
			Datatypes:  datatypes,
			OnConflict: strings.ToLower(v.GetString("engine.on_conflict")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if len(datatypes) == 0 {
		datatypes = discoverDatatypes(v)
	}
	cfg.Definitions, err = LoadDefinitions(v, datatypes)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// discoverDatatypes returns every top-level key carrying definition names, sorted.
func discoverDatatypes(v *viper.Viper) []string {
	var out []string
	for key := range v.AllSettings() {
		if reservedKeys[key] {
			continue
		}
		if v.IsSet(key+"."+virtualPrefix+".name") || v.IsSet(key+"."+compositePrefix+".name") {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// LoadDefinitions reads the virtual then composite definitions of each datatype.
// Count mismatches return types.ErrDefinitionCountMismatch; compilation errors
// surface later from compose.BuildTable.
func LoadDefinitions(v *viper.Viper, datatypes []string) ([]types.DefinitionConfig, error) {
	var out []types.DefinitionConfig
	for _, dt := range datatypes {
		dt = strings.ToLower(dt)
		for _, mode := range []string{types.ModeVirtual, types.ModeComposite} {
			defs, err := loadMode(v, dt, mode)
			if err != nil {
				return nil, fmt.Errorf("datatype %s: %w", dt, err)
			}
			out = append(out, defs...)
		}
	}
	return out, nil
}

func loadMode(v *viper.Viper, datatype, mode string) ([]types.DefinitionConfig, error) {
	prefix := datatype + "." + compositePrefix
	defaultSep := DefaultCompositeSeparator
	if mode == types.ModeVirtual {
		prefix = datatype + "." + virtualPrefix
		defaultSep = DefaultVirtualSeparator
	}

	names, err := stringList(v, prefix+".name")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	members, err := stringList(v, prefix+".fields")
	if err != nil {
		return nil, err
	}
	if len(members) != len(names) {
		return nil, fmt.Errorf("%w: %s has %d names and %d fields",
			types.ErrDefinitionCountMismatch, prefix, len(names), len(members))
	}
	n := len(names)

	separators, err := perDefinition(v, prefix+".separator", n, defaultSep, separatorValue)
	if err != nil {
		return nil, err
	}
	policies, err := perDefinition(v, prefix+".grouping.policy", n, "", strings.TrimSpace)
	if err != nil {
		return nil, err
	}
	allowMissing, err := perDefinition(v, prefix+".allow.missing", n, "false", strings.TrimSpace)
	if err != nil {
		return nil, err
	}
	ignore, err := stringList(v, prefix+".ignore.normalization.on.fields")
	if err != nil {
		return nil, err
	}

	var starts, ends []string
	if mode == types.ModeVirtual {
		if starts, err = perDefinition(v, prefix+".start.separator", n, "", separatorValue); err != nil {
			return nil, err
		}
		if ends, err = perDefinition(v, prefix+".end.separator", n, "", separatorValue); err != nil {
			return nil, err
		}
	}

	defs := make([]types.DefinitionConfig, n)
	for i := range names {
		allow, err := cast.ToBoolE(allowMissing[i])
		if err != nil {
			return nil, fmt.Errorf("%s.allow.missing: %w", prefix, err)
		}
		defs[i] = types.DefinitionConfig{
			Datatype:            datatype,
			Mode:                mode,
			Target:              names[i],
			Members:             members[i],
			Separator:           separators[i],
			AllowMissing:        allow,
			GroupingPolicy:      strings.ToUpper(policies[i]),
			IgnoreNormalization: ignore,
		}
		if starts != nil && v.IsSet(prefix+".start.separator") {
			defs[i].StartSeparator = &starts[i]
		}
		if ends != nil && v.IsSet(prefix+".end.separator") {
			defs[i].EndSeparator = &ends[i]
		}
	}
	return defs, nil
}

// stringList reads key as a YAML list or a quote-aware comma string.
// Entries are trimmed; empty entries are dropped.
func stringList(v *viper.Viper, key string) ([]string, error) {
	raw, err := rawList(v, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// perDefinition reads key as one value for all n definitions or exactly n values.
// An unset key yields n copies of def. Each entry passes through clean.
func perDefinition(v *viper.Viper, key string, n int, def string, clean func(string) string) ([]string, error) {
	out := make([]string, n)
	if !v.IsSet(key) {
		for i := range out {
			out[i] = def
		}
		return out, nil
	}

	raw, err := rawList(v, key)
	if err != nil {
		return nil, err
	}
	switch len(raw) {
	case 1:
		for i := range out {
			out[i] = clean(raw[0])
		}
	case n:
		for i := range out {
			out[i] = clean(raw[i])
		}
	default:
		return nil, fmt.Errorf("%w: %s has %d values for %d definitions",
			types.ErrDefinitionCountMismatch, key, len(raw), n)
	}
	return out, nil
}

// rawList returns the untrimmed entries of key.
func rawList(v *viper.Viper, key string) ([]string, error) {
	switch val := v.Get(key).(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make([]string, len(val))
		for i, item := range val {
			s, err := cast.ToStringE(item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			out[i] = s
		}
		return out, nil
	case []string:
		return val, nil
	default:
		s, err := cast.ToStringE(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		parts, err := compose.SplitList(s, ',')
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return parts, nil
	}
}

// separatorValue unquotes a separator entry. Whitespace-only entries are kept
// verbatim so " " remains a single space.
func separatorValue(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return s
	}
	return compose.Unquote(t)
}
