// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultSettingsPaths lists the paths searched for a settings file, in
// priority order, when none is given explicitly.
var DefaultSettingsPaths = []string{
	"settings.yaml",
	"settings.yml",
	"/etc/actyx/settings.yaml",
	"/etc/actyx/settings.yml",
}

// SettingsPathEnvVar overrides the settings file search with an explicit
// path.
const SettingsPathEnvVar = "ACTYX_SETTINGS_PATH"

// EnvPrefix namespaces the environment variable overrides layer, e.g.
// ACTYX_SWARM_TOPIC -> swarm.topic.
const EnvPrefix = "ACTYX_"

// Load builds the Settings document by layering, in increasing
// priority: schema defaults, an optional YAML settings file, then
// environment variables. The merged document is validated before Load
// returns; a startup that fails this validation aborts with the
// *ValidationError (spec.md §4.7).
func Load() (*Store, error) {
	k := koanf.New(".")

	defaults := defaultDocument()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load settings defaults: %w", err)
	}

	if path := findSettingsFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKeyToPath)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load settings environment overrides: %w", err)
	}

	// Validate the raw merged map, not the typed Document: unmarshaling
	// into Document first would silently drop any additional_property
	// the schema needs to reject.
	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return nil, fmt.Errorf("marshal merged settings: %w", err)
	}
	if err := validateRaw(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("unmarshal settings document: %w", err)
	}
	return NewStore(doc), nil
}

// findSettingsFile resolves the settings file path: the env var
// override if set and present, else the first of DefaultSettingsPaths
// that exists on disk.
func findSettingsFile() string {
	if p := os.Getenv(SettingsPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultSettingsPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeyToPath turns ACTYX_SWARM_SWARM_KEY into swarm.swarmKey-shaped
// koanf paths by looking the name, without its ACTYX_ prefix, up in the
// fixed table of envPathMappings. Variables not in the table map to ""
// and are ignored.
func envKeyToPath(key string) string {
	mapped, ok := envPathMappings()[strings.TrimPrefix(key, EnvPrefix)]
	if !ok {
		return ""
	}
	return mapped
}

func envPathMappings() map[string]string {
	return map[string]string{
		"ADMIN_DISPLAY_NAME":   "admin.displayName",
		"SWARM_SWARM_KEY":      "swarm.swarmKey",
		"SWARM_TOPIC":          "swarm.topic",
		"API_EVENTS_READ_ONLY": "api.events.readOnly",
		"LICENSING_NODE_MODE":  "licensing.node.mode",
	}
}
