package capmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// Error classification codes. Callers MUST classify errors using errors.Is.
var (
	ErrInvalidConfig     = errors.New("capmap: invalid config")
	ErrUnknownMapKind    = errors.New("capmap: unknown map kind")
	ErrUnknownPermission = errors.New("capmap: unknown permission")
)

// Config declares the user-installed Maps and scan limits for a
// Mapper, loaded from a HuJSON (JSON-with-comments) document.
type Config struct {
	MaxScanDepth *uint64   `json:"max_scan_depth,omitempty"` //nolint:tagliatelle // snake_case for config file
	Maps         []MapSpec `json:"maps"`
}

// MapSpec declares one Map to install. Kind selects which built-in Map
// type it constructs; fields that kind does not use are ignored.
type MapSpec struct {
	Kind         string      `json:"kind"`
	Name         string      `json:"name"`
	AddressSpace string      `json:"address_space"` //nolint:tagliatelle // snake_case for config file
	Permissions  []string    `json:"permissions,omitempty"`
	PoisonRanges []RangeSpec `json:"poison_ranges,omitempty"` //nolint:tagliatelle // snake_case for config file
}

// RangeSpec is a [Base, Last] range encoded as 0x-prefixed hex strings.
type RangeSpec struct {
	Base string `json:"base"`
	Last string `json:"last"`
}

// LoadConfig parses a HuJSON document (JSON allowing comments and
// trailing commas) into a Config.
func LoadConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSONC: %w", ErrInvalidConfig, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// DefaultConfigFileName is the project config file LoadConfigLayered
// looks for when configPath is empty.
const DefaultConfigFileName = ".capmap.json"

// LoadConfigLayered resolves a Config with the same precedence
// cmd/capmap's subcommands use: defaults (the zero Config — unbounded
// max_scan_depth, no Maps), overlaid by an optional project file.
// configPath, if non-empty, names that file explicitly and must exist;
// otherwise DefaultConfigFileName is looked up in workDir and silently
// skipped if absent. The caller applies any further CLI-flag overrides
// on top of the returned Config (capmap has exactly one such override,
// --max-scan-depth, applied by the caller since only it knows whether
// the flag was actually set). path is the file that was loaded, or
// empty if defaults were used untouched.
func LoadConfigLayered(workDir, configPath string) (cfg Config, path string, err error) {
	cfgPath := configPath
	mustExist := configPath != ""

	if cfgPath == "" {
		cfgPath = filepath.Join(workDir, DefaultConfigFileName)
	}

	data, readErr := os.ReadFile(cfgPath) //nolint:gosec // path is intentionally user-controlled
	switch {
	case readErr == nil:
		cfg, err = LoadConfig(data)
		if err != nil {
			return Config{}, "", err
		}

		return cfg, cfgPath, nil
	case os.IsNotExist(readErr) && !mustExist:
		return Config{}, "", nil
	default:
		return Config{}, "", fmt.Errorf("%w: reading %s: %w", ErrInvalidConfig, cfgPath, readErr)
	}
}

// BuildMaps constructs the Maps declared by c, in declaration order.
// onPoison, if non-nil, is invoked by every PoisonMap built, receiving
// the map's own name alongside the poisoned capability.
func (c Config) BuildMaps(onPoison func(mapName string, cap capability.Capability)) ([]Map, error) {
	maps := make([]Map, 0, len(c.Maps))

	for _, spec := range c.Maps {
		m, err := spec.build(onPoison)
		if err != nil {
			return nil, err
		}

		maps = append(maps, m)
	}

	return maps, nil
}

func (s MapSpec) build(onPoison func(string, capability.Capability)) (Map, error) {
	switch s.Kind {
	case "permission":
		perms, err := parsePermissions(s.Permissions)
		if err != nil {
			return nil, err
		}

		return NewPermissionMap(s.Name, s.AddressSpace, perms), nil

	case "branch":
		return NewBranchMap(s.Name, s.AddressSpace), nil

	case "poison":
		perms, err := parsePermissions(s.Permissions)
		if err != nil {
			return nil, err
		}

		var poison rangeset.SparseRange

		for _, rs := range s.PoisonRanges {
			r, err := rs.toRange()
			if err != nil {
				return nil, err
			}

			poison.Combine(r)
		}

		name := s.Name

		var cb func(capability.Capability)
		if onPoison != nil {
			cb = func(cap capability.Capability) { onPoison(name, cap) }
		}

		return NewPoisonMap(s.Name, s.AddressSpace, perms, poison, cb), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMapKind, s.Kind)
	}
}

func (rs RangeSpec) toRange() (rangeset.Range, error) {
	base, err := parseHexAddress(rs.Base)
	if err != nil {
		return rangeset.Range{}, err
	}

	last, err := parseHexAddress(rs.Last)
	if err != nil {
		return rangeset.Range{}, err
	}

	return rangeset.FromBaseLast(base, last), nil
}

func parseHexAddress(s string) (rangeset.Address, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid address %q: %w", ErrInvalidConfig, s, err)
	}

	return v, nil
}

var permissionsByName = map[string]capability.Permission{
	"Load":             capability.PermLoad,
	"Store":            capability.PermStore,
	"LoadCap":          capability.PermLoadCap,
	"StoreCap":         capability.PermStoreCap,
	"Execute":          capability.PermExecute,
	"Global":           capability.PermGlobal,
	"Seal":             capability.PermSeal,
	"Unseal":           capability.PermUnseal,
	"BranchSealedPair": capability.PermBranchSealedPair,
	"CompartmentID":    capability.PermCompartmentID,
	"MutableLoad":      capability.PermMutableLoad,
}

// ParseHexAddress parses a 0x-prefixed (or bare) hex address string,
// the same format used throughout config files and JSON reports.
func ParseHexAddress(s string) (rangeset.Address, error) {
	return parseHexAddress(s)
}

// ParsePermissions resolves a list of permission names (as used in
// MapSpec.Permissions) to a Permission bitset.
func ParsePermissions(names []string) (capability.Permission, error) {
	return parsePermissions(names)
}

func parsePermissions(names []string) (capability.Permission, error) {
	var p capability.Permission

	for _, n := range names {
		bit, ok := permissionsByName[n]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, n)
		}

		p |= bit
	}

	return p, nil
}
