package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// ErrInvalidDescriptor is returned when a descriptor is declared with a
// malformed shape: unknown keys, missing settings tiers, or empty values.
var ErrInvalidDescriptor = errors.New("invalid plugin descriptor")

// URLConfig tells the host dispatcher where to mount an app's URL table.
// Regex is matched against the request path without its leading slash.
type URLConfig struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Regex     string `json:"regex" yaml:"regex"`
}

// SettingsConfig names the settings module, relative to the app, that the
// host applies for one settings tier.
type SettingsConfig struct {
	RelativePath string `json:"relative_path" yaml:"relative_path"`
}

// DescriptorConfig is the literal form of a descriptor declaration.
type DescriptorConfig struct {
	Name     string
	URLs     map[ProjectType]URLConfig
	Settings map[ProjectType]map[SettingsType]SettingsConfig
}

// Descriptor is the immutable plugin declaration of an app. It is built once
// and only read afterwards, so it is safe to share between goroutines.
type Descriptor struct {
	name     string
	urls     map[ProjectType]URLConfig
	settings map[ProjectType]map[SettingsType]SettingsConfig
}

var appNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)*$`)

// NewDescriptor validates cfg and returns a descriptor holding its own copy
// of the declaration. Every variant in the settings config must supply every
// settings tier. URL regexes are not compiled here; the dispatcher does that.
func NewDescriptor(cfg DescriptorConfig) (*Descriptor, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if !appNameRe.MatchString(cfg.Name) {
		return nil, fmt.Errorf("%w: name %q must be a dotted lower-case identifier", ErrInvalidDescriptor, cfg.Name)
	}

	d := &Descriptor{
		name:     cfg.Name,
		urls:     make(map[ProjectType]URLConfig, len(cfg.URLs)),
		settings: make(map[ProjectType]map[SettingsType]SettingsConfig, len(cfg.Settings)),
	}

	for pt, u := range cfg.URLs {
		if !pt.Valid() {
			return nil, fmt.Errorf("%w: %s: unknown project type %q in url config", ErrInvalidDescriptor, cfg.Name, pt)
		}
		d.urls[pt] = u
	}

	for pt, tiers := range cfg.Settings {
		if !pt.Valid() {
			return nil, fmt.Errorf("%w: %s: unknown project type %q in settings config", ErrInvalidDescriptor, cfg.Name, pt)
		}
		for st := range tiers {
			if !st.Valid() {
				return nil, fmt.Errorf("%w: %s: unknown settings type %q for %s", ErrInvalidDescriptor, cfg.Name, st, pt)
			}
		}
		copied := make(map[SettingsType]SettingsConfig, len(tiers))
		for _, st := range SettingsTypes() {
			sc, ok := tiers[st]
			if !ok {
				return nil, fmt.Errorf("%w: %s: %s settings config is missing the %q tier", ErrInvalidDescriptor, cfg.Name, pt, st)
			}
			if sc.RelativePath == "" {
				return nil, fmt.Errorf("%w: %s: %s/%s relative path is empty", ErrInvalidDescriptor, cfg.Name, pt, st)
			}
			copied[st] = sc
		}
		d.settings[pt] = copied
	}
	return d, nil
}

// MustDescriptor is like NewDescriptor but panics on error. It is meant for
// package-level declarations, where a bad shape must stop the process.
func MustDescriptor(cfg DescriptorConfig) *Descriptor {
	d, err := NewDescriptor(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the app identifier.
func (d *Descriptor) Name() string { return d.name }

// URL returns the URL declaration for a deployment variant.
func (d *Descriptor) URL(pt ProjectType) (URLConfig, bool) {
	u, ok := d.urls[pt]
	return u, ok
}

// Settings returns the settings declaration for a variant and tier.
func (d *Descriptor) Settings(pt ProjectType, st SettingsType) (SettingsConfig, bool) {
	tiers, ok := d.settings[pt]
	if !ok {
		return SettingsConfig{}, false
	}
	sc, ok := tiers[st]
	return sc, ok
}

// URLProjectTypes returns the variants with a URL declaration, in the order
// of ProjectTypes.
func (d *Descriptor) URLProjectTypes() []ProjectType {
	var out []ProjectType
	for _, pt := range ProjectTypes() {
		if _, ok := d.urls[pt]; ok {
			out = append(out, pt)
		}
	}
	return out
}

// SettingsProjectTypes returns the variants with a settings declaration, in
// the order of ProjectTypes.
func (d *Descriptor) SettingsProjectTypes() []ProjectType {
	var out []ProjectType
	for _, pt := range ProjectTypes() {
		if _, ok := d.settings[pt]; ok {
			out = append(out, pt)
		}
	}
	return out
}

// RelativePaths returns the distinct settings module paths the descriptor
// references, sorted.
func (d *Descriptor) RelativePaths() []string {
	seen := make(map[string]bool)
	for _, tiers := range d.settings {
		for _, sc := range tiers {
			seen[sc.RelativePath] = true
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Equal reports whether two descriptors declare the same thing.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.name != other.name || len(d.urls) != len(other.urls) || len(d.settings) != len(other.settings) {
		return false
	}
	for pt, u := range d.urls {
		if ou, ok := other.urls[pt]; !ok || ou != u {
			return false
		}
	}
	for pt, tiers := range d.settings {
		otiers, ok := other.settings[pt]
		if !ok || len(otiers) != len(tiers) {
			return false
		}
		for st, sc := range tiers {
			if osc, ok := otiers[st]; !ok || osc != sc {
				return false
			}
		}
	}
	return true
}

// descriptorDoc is the introspection layout of a descriptor.
type descriptorDoc struct {
	Name      string    `json:"name" yaml:"name"`
	PluginApp pluginApp `json:"plugin_app" yaml:"plugin_app"`
}

type pluginApp struct {
	URLConfig      map[ProjectType]URLConfig                       `json:"url_config" yaml:"url_config"`
	SettingsConfig map[ProjectType]map[SettingsType]SettingsConfig `json:"settings_config" yaml:"settings_config"`
}

func (d *Descriptor) doc() descriptorDoc {
	return descriptorDoc{
		Name: d.name,
		PluginApp: pluginApp{
			URLConfig:      d.urls,
			SettingsConfig: d.settings,
		},
	}
}

// MarshalJSON renders the descriptor in its plugin_app layout.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.doc())
}

// MarshalYAML renders the descriptor in its plugin_app layout.
func (d *Descriptor) MarshalYAML() (any, error) {
	return d.doc(), nil
}
