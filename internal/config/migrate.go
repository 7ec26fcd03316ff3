package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// migration upgrades a decoded configuration document from one version to the next.
type migration struct {
	from  int
	apply func(doc map[string]any) error
}

// migrations must stay ordered by from-version.
var migrations = []migration{
	{from: 0, apply: migrateLegacySettings},
}

// migrate upgrades raw TOML to CurrentVersion. Unchanged documents are
// returned as-is so comments and formatting survive a no-op load.
func migrate(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	changed, err := migrateDocument(doc)
	if err != nil {
		return nil, err
	}
	if !changed {
		return data, nil
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode migrated config: %w", err)
	}
	return out, nil
}

// ImportLegacyJSON converts the settings blob persisted by the desktop app
// (camelCase JSON) into a current-version TOML document.
func ImportLegacyJSON(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse legacy settings: %w", err)
	}
	delete(doc, "config_version")
	if _, err := migrateDocument(doc); err != nil {
		return nil, err
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode imported config: %w", err)
	}
	return out, nil
}

func migrateDocument(doc map[string]any) (bool, error) {
	version, err := documentVersion(doc)
	if err != nil {
		return false, err
	}
	if version > CurrentVersion {
		return false, fmt.Errorf("config_version %d is newer than supported version %d", version, CurrentVersion)
	}
	changed := false
	for _, m := range migrations {
		if m.from != version {
			continue
		}
		if err := m.apply(doc); err != nil {
			return false, fmt.Errorf("migrate config from version %d: %w", m.from, err)
		}
		version++
		doc["config_version"] = int64(version)
		changed = true
	}
	return changed, nil
}

func documentVersion(doc map[string]any) (int, error) {
	raw, ok := doc["config_version"]
	if !ok {
		return 0, nil
	}
	switch v := raw.(type) {
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("config_version must be an integer, got %T", raw)
	}
}

// migrateLegacySettings maps the flat, unversioned settings blob onto the
// sectioned version 1 layout.
func migrateLegacySettings(doc map[string]any) error {
	paths := section(doc, "paths")
	if v, ok := takeString(doc, "originalPath", "original_path"); ok {
		paths["original_dir"] = v
	}
	if v, ok := takeString(doc, "proxyPath", "proxy_path"); ok {
		paths["proxy_dir"] = v
	}

	encoder := section(doc, "encoder")
	if v, ok := takeString(doc, "selectedAmeVersion", "selected_ame_version"); ok {
		encoder["version"] = v
	}

	if network, ok := take(doc, "networkSettings", "network_settings"); ok {
		settings, isMap := network.(map[string]any)
		if !isMap {
			return fmt.Errorf("network settings must be a table, got %T", network)
		}
		ws := section(doc, "webservice")
		if v, ok := takeString(settings, "ameIP", "ame_ip"); ok {
			ws["host"] = v
		}
		if v, ok := take(settings, "amePort", "ame_port"); ok {
			port, err := toInt(v)
			if err != nil {
				return fmt.Errorf("network settings port: %w", err)
			}
			ws["port"] = int64(port)
		}
	}

	scales := map[string]any{}
	if v, ok := take(doc, "resolutionMappings", "resolution_mappings"); ok {
		m, isMap := v.(map[string]any)
		if !isMap {
			return fmt.Errorf("resolution mappings must be a table, got %T", v)
		}
		scales = m
	}
	assignments := map[string]any{}
	if v, ok := take(doc, "presetAssignments", "preset_assignments"); ok {
		m, isMap := v.(map[string]any)
		if !isMap {
			return fmt.Errorf("preset assignments must be a table, got %T", v)
		}
		assignments = m
	}

	labels := make([]string, 0, len(scales)+len(assignments))
	seen := map[string]struct{}{}
	for _, m := range []map[string]any{scales, assignments} {
		for label := range m {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	if len(labels) > 0 {
		resolutions := make([]map[string]any, 0, len(labels))
		for _, label := range labels {
			entry := map[string]any{"resolution": label, "scale": ScaleSkip, "preset": PresetUnassigned}
			if raw, ok := scales[label]; ok {
				entry["scale"] = scaleString(raw)
			}
			if raw, ok := assignments[label].(string); ok && strings.TrimSpace(raw) != "" {
				entry["preset"] = raw
			}
			resolutions = append(resolutions, entry)
		}
		doc["resolutions"] = resolutions
	}

	// UI-only state carried by the desktop blob.
	for _, key := range []string{"proxySettings", "codecSettings", "customResolutions", "autoRefresh"} {
		delete(doc, key)
	}

	pruneEmpty(doc, "paths", "encoder", "webservice")
	return nil
}

func section(doc map[string]any, name string) map[string]any {
	if existing, ok := doc[name].(map[string]any); ok {
		return existing
	}
	created := map[string]any{}
	doc[name] = created
	return created
}

func pruneEmpty(doc map[string]any, names ...string) {
	for _, name := range names {
		if m, ok := doc[name].(map[string]any); ok && len(m) == 0 {
			delete(doc, name)
		}
	}
}

func take(doc map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := doc[key]; ok {
			delete(doc, key)
			return v, true
		}
	}
	return nil, false
}

func takeString(doc map[string]any, keys ...string) (string, bool) {
	v, ok := take(doc, keys...)
	if !ok {
		return "", false
	}
	s, isString := v.(string)
	if !isString || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

func scaleString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	case string:
		return strings.ToLower(strings.TrimSpace(n))
	default:
		return ScaleSkip
	}
}
