package normalize

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/laptoptracker/laptop-tracker/internal/model"
)

//go:embed mapping.yaml
var defaultMappingYAML []byte

// Vendor keys in the mapping file.
const (
	VendorKandji = "kandji"
	VendorIntune = "intune"
)

// Canonical field names a mapping may target.
const (
	FieldDeviceName      = "device_name"
	FieldUserName        = "user.name"
	FieldUserEmail       = "user.email"
	FieldModel           = "model"
	FieldOSVersion       = "os_version"
	FieldSerialNumber    = "serial_number"
	FieldAssetTag        = "asset_tag"
	FieldFirstEnrollment = "first_enrollment"
	FieldLastEnrollment  = "last_enrollment"
	FieldLastCheckIn     = "last_check_in"
	FieldPlatform        = "platform"
)

var knownFields = map[string]bool{
	FieldDeviceName:      true,
	FieldUserName:        true,
	FieldUserEmail:       true,
	FieldModel:           true,
	FieldOSVersion:       true,
	FieldSerialNumber:    true,
	FieldAssetTag:        true,
	FieldFirstEnrollment: true,
	FieldLastEnrollment:  true,
	FieldLastCheckIn:     true,
	FieldPlatform:        true,
}

// ErrUnknownVendor is returned when a mapping has no section for a vendor.
var ErrUnknownVendor = errors.New("vendor not present in field mapping")

// MappingConfig is the YAML layout of a field mapping file.
type MappingConfig struct {
	Version int                     `yaml:"version"`
	Vendors map[string]VendorConfig `yaml:"vendors"`
}

// VendorConfig describes one vendor's payload.
type VendorConfig struct {
	Platform string                 `yaml:"platform"`
	ListKeys []string               `yaml:"list_keys"`
	Fields   map[string]FieldConfig `yaml:"fields"`
}

// FieldConfig lists candidate source paths for one canonical field.
type FieldConfig struct {
	Candidates []string `yaml:"candidates"`
	Default    string   `yaml:"default"`
	DefaultNow bool     `yaml:"default_now"`
}

// Mapping is a compiled vendor mapping.
type Mapping struct {
	Vendor   string
	Platform string
	ListKeys []string
	rules    map[string]Rule
}

// Mappings holds the compiled mapping for every vendor.
type Mappings map[string]*Mapping

// Load reads a mapping file, or the embedded default when path is empty.
func Load(path string) (Mappings, error) {
	data := defaultMappingYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read field mapping: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse compiles mapping YAML.
func Parse(data []byte) (Mappings, error) {
	var cfg MappingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse field mapping: %w", err)
	}

	out := make(Mappings, len(cfg.Vendors))
	for vendor, vc := range cfg.Vendors {
		m := &Mapping{
			Vendor:   vendor,
			Platform: vc.Platform,
			ListKeys: vc.ListKeys,
			rules:    make(map[string]Rule, len(vc.Fields)),
		}
		for field, fc := range vc.Fields {
			if !knownFields[field] {
				return nil, fmt.Errorf("vendor %s: unknown field %q", vendor, field)
			}
			rule := Rule{Default: fc.Default, DefaultNow: fc.DefaultNow}
			for _, c := range fc.Candidates {
				rule.Candidates = append(rule.Candidates, Path(c))
			}
			m.rules[field] = rule
		}
		out[vendor] = m
	}
	return out, nil
}

// Default returns the compiled embedded mapping. It panics on a broken
// embedded file, which the package tests rule out.
func Default() Mappings {
	m, err := Parse(defaultMappingYAML)
	if err != nil {
		panic(err)
	}
	return m
}

// For returns the mapping for a vendor.
func (ms Mappings) For(vendor string) (*Mapping, error) {
	m, ok := ms[vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVendor, vendor)
	}
	return m, nil
}

func (m *Mapping) resolve(field string, raw map[string]any, now time.Time) string {
	rule, ok := m.rules[field]
	if !ok {
		return ""
	}
	return rule.Resolve(raw, now)
}

// Device normalizes one raw vendor record.
func (m *Mapping) Device(raw map[string]any, now time.Time) model.Device {
	d := model.Device{
		DeviceName: m.resolve(FieldDeviceName, raw, now),
		User: model.User{
			Name:  m.resolve(FieldUserName, raw, now),
			Email: m.resolve(FieldUserEmail, raw, now),
		},
		Model:           m.resolve(FieldModel, raw, now),
		OSVersion:       m.resolve(FieldOSVersion, raw, now),
		SerialNumber:    m.resolve(FieldSerialNumber, raw, now),
		AssetTag:        m.resolve(FieldAssetTag, raw, now),
		FirstEnrollment: m.resolve(FieldFirstEnrollment, raw, now),
		LastEnrollment:  m.resolve(FieldLastEnrollment, raw, now),
		LastCheckIn:     m.resolve(FieldLastCheckIn, raw, now),
		Platform:        m.resolve(FieldPlatform, raw, now),
	}
	if d.Platform == "" {
		d.Platform = m.Platform
	}
	return d
}

// Devices normalizes a batch of raw records.
func (m *Mapping) Devices(raws []map[string]any, now time.Time) []model.Device {
	out := make([]model.Device, 0, len(raws))
	for _, raw := range raws {
		out = append(out, m.Device(raw, now))
	}
	return out
}
