// Package profile resolves the active scan-target set and policy knobs
// from built-in and user-defined profiles. User profiles are TOML files
// under <state-dir>/profiles/ merged on top of the built-ins: present
// fields override, lists replace.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jamesainslie/tidymac/pkg/tidymac/catalog"
	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/spf13/viper"
)

// Aggression controls how eagerly a profile reclaims space.
type Aggression string

// Aggression levels.
const (
	AggressionLow    Aggression = "low"
	AggressionMedium Aggression = "medium"
	AggressionHigh   Aggression = "high"
)

// ErrInvalidProfile indicates a profile that cannot be loaded.
var ErrInvalidProfile = errors.New("invalid profile")

// ErrUnknownProfile indicates a profile name with no definition.
var ErrUnknownProfile = errors.New("profile not found")

// Profile names a subset of catalog targets plus policy knobs.
type Profile struct {
	Name                 string     `mapstructure:"name" json:"name"`
	Description          string     `mapstructure:"description" json:"description"`
	Aggression           Aggression `mapstructure:"aggression" json:"aggression"`
	Targets              []string   `mapstructure:"targets" json:"targets"`
	StaleDays            int        `mapstructure:"stale_days" json:"stale_days"`
	LargeFileThresholdMB int64      `mapstructure:"large_file_threshold_mb" json:"large_file_threshold_mb"`
	IncludeDangerous     bool       `mapstructure:"include_dangerous" json:"include_dangerous"`
}

// Policy is the resolved per-scan policy derived from a profile.
type Policy struct {
	StaleDays          int
	LargeFileThreshold int64
	IncludeDangerous   bool
	Aggression         Aggression
}

// profileKeys is the enumerated TOML surface; anything else is warned
// about and ignored.
var profileKeys = map[string]struct{}{
	"name":                    {},
	"description":             {},
	"aggression":              {},
	"targets":                 {},
	"stale_days":              {},
	"large_file_threshold_mb": {},
	"include_dangerous":       {},
}

// quickTargets is the shared base for the quick profile.
var quickTargets = []string{
	"User Cache Files",
	"User Log Files",
	"Temporary Files",
	"User Trash",
	"QuickLook Thumbnails",
}

// developerTargets extends quick with every developer target.
var developerTargets = append(append([]string{}, quickTargets...),
	"Crash Reports",
	"Xcode DerivedData",
	"iOS Simulators",
	"Docker Data",
	"Homebrew Cache",
	"pip Cache",
	"npm Cache",
	"Yarn Cache",
	"pnpm Store",
	"CocoaPods Cache",
	"Cargo Registry Cache",
	"Gradle Cache",
	"Maven Local Repository",
	"Conda Package Cache",
	"Go Module Cache",
	"Dev Project Artifacts",
)

// creativeTargets extends quick with media and attachment caches.
var creativeTargets = append(append([]string{}, quickTargets...),
	"Crash Reports",
	"Mail Downloads",
	"Mail Container Data",
	"Downloaded Disk Images",
	"Saved Application State",
)

// builtins returns the four built-in profiles.
func builtins() map[string]Profile {
	return map[string]Profile{
		"quick": {
			Name:                 "quick",
			Description:          "Fast daily cleanup: caches, temp files, trash",
			Aggression:           AggressionLow,
			Targets:              append([]string{}, quickTargets...),
			StaleDays:            config.DefaultStaleDays,
			LargeFileThresholdMB: config.DefaultLargeFileMB,
		},
		"developer": {
			Name:                 "developer",
			Description:          "Developer cache cleanup: Xcode, Docker, npm, pip, and more",
			Aggression:           AggressionMedium,
			Targets:              append([]string{}, developerTargets...),
			StaleDays:            config.DefaultStaleDays,
			LargeFileThresholdMB: config.DefaultLargeFileMB,
		},
		"creative": {
			Name:                 "creative",
			Description:          "Cleanup after creative work: previews, renders, attachments",
			Aggression:           AggressionMedium,
			Targets:              append([]string{}, creativeTargets...),
			StaleDays:            14,
			LargeFileThresholdMB: 200,
		},
		"deep": {
			Name:                 "deep",
			Description:          "Thorough cleanup: all targets including large files",
			Aggression:           AggressionHigh,
			Targets:              catalog.Names(),
			StaleDays:            14,
			LargeFileThresholdMB: 100,
			IncludeDangerous:     true,
		},
	}
}

// BuiltinNames returns the built-in profile names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, 4)
	for name := range builtins() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all available profiles: built-ins first (with any user
// overlay applied), then standalone user profiles.
func List() ([]Profile, error) {
	profiles := make([]Profile, 0, 8)
	for _, name := range BuiltinNames() {
		p, _, err := Load(name)
		if err != nil {
			p = &Profile{}
			*p = builtins()[name]
		}
		profiles = append(profiles, *p)
	}

	entries, err := os.ReadDir(config.ProfilesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return profiles, nil
		}
		return nil, fmt.Errorf("reading profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		if _, isBuiltin := builtins()[name]; isBuiltin {
			continue
		}
		p, _, err := Load(name)
		if err != nil {
			continue
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// Load resolves a profile by name. A user TOML of the same name as a
// built-in is merged over it; an unknown name with no user file is an
// error. The returned warnings list unknown keys in the user file.
func Load(name string) (*Profile, []string, error) {
	base, isBuiltin := builtins()[name]
	if !isBuiltin {
		// Custom profiles start from quick's policy defaults.
		base = builtins()["quick"]
		base.Name = name
		base.Description = ""
	}

	path := filepath.Join(config.ProfilesDir(), name+".toml")
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("checking profile %s: %w", name, err)
		}
		if !isBuiltin {
			return nil, nil, fmt.Errorf("%w: %q (available: %s)",
				ErrUnknownProfile, name, strings.Join(BuiltinNames(), ", "))
		}
		return &base, nil, nil
	}

	merged, warnings, err := mergeFile(base, path)
	if err != nil {
		return nil, nil, err
	}
	return merged, warnings, nil
}

// mergeFile overlays a profile TOML file on top of base. Fields present
// in the file override; absent fields keep the base value.
func mergeFile(base Profile, path string) (*Profile, []string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, path, err)
	}

	var warnings []string
	for _, key := range v.AllKeys() {
		if _, ok := profileKeys[key]; !ok {
			warnings = append(warnings, fmt.Sprintf("profile %s: unknown key %q ignored", filepath.Base(path), key))
		}
	}
	sort.Strings(warnings)

	merged := base
	if v.IsSet("name") {
		merged.Name = v.GetString("name")
	}
	if v.IsSet("description") {
		merged.Description = v.GetString("description")
	}
	if v.IsSet("aggression") {
		agg := Aggression(strings.ToLower(v.GetString("aggression")))
		switch agg {
		case AggressionLow, AggressionMedium, AggressionHigh:
			merged.Aggression = agg
		default:
			return nil, warnings, fmt.Errorf("%w: bad aggression %q", ErrInvalidProfile, v.GetString("aggression"))
		}
	}
	if v.IsSet("targets") {
		// Lists replace, never union.
		merged.Targets = v.GetStringSlice("targets")
	}
	if v.IsSet("stale_days") {
		merged.StaleDays = v.GetInt("stale_days")
	}
	if v.IsSet("large_file_threshold_mb") {
		merged.LargeFileThresholdMB = v.GetInt64("large_file_threshold_mb")
	}
	if v.IsSet("include_dangerous") {
		merged.IncludeDangerous = v.GetBool("include_dangerous")
	}

	return &merged, warnings, nil
}

// Resolve returns the active target list and policy for a profile.
// Unknown target names are reported as warnings; Dangerous targets are
// filtered unless the profile includes them.
func Resolve(p *Profile) ([]catalog.ScanTarget, Policy, []string) {
	var warnings []string
	var active []catalog.ScanTarget

	for _, name := range p.Targets {
		target, ok := catalog.ByName(name)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("profile %s: unknown target %q ignored", p.Name, name))
			continue
		}
		if target.Safety == types.Dangerous && !p.IncludeDangerous {
			continue
		}
		active = append(active, *target)
	}

	policy := Policy{
		StaleDays:          p.StaleDays,
		LargeFileThreshold: p.LargeFileThresholdMB * types.MiB,
		IncludeDangerous:   p.IncludeDangerous,
		Aggression:         p.Aggression,
	}
	return active, policy, warnings
}
