package cmd

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	sim "github.com/speakerver-sim/speakerver-sim/sim"
)

// loadConfig reads a YAML config on top of sim.DefaultConfig. An empty path
// returns the defaults.
// Uses strict field checking: a misspelled key is an error, not a silently ignored knob.
func loadConfig(path string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Config{}, errors.Wrapf(err, "read config %s", path)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return sim.Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// parseOverrides turns repeated --set key=value flags into a mapping.
// Values stay strings; sim.Config.Apply converts them to the field types.
func parseOverrides(sets []string) (map[string]any, error) {
	overrides := make(map[string]any, len(sets))
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("invalid --set %q, expected key=value", set)
		}
		overrides[key] = strings.TrimSpace(value)
	}
	return overrides, nil
}

// resolveConfig builds the run config: defaults, then the file, then --set overrides.
func resolveConfig(path string, sets []string) (sim.Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return sim.Config{}, err
	}
	overrides, err := parseOverrides(sets)
	if err != nil {
		return sim.Config{}, err
	}
	if err := cfg.Apply(overrides); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

// writeYAML marshals v into path.
func writeYAML(path string, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", path)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
