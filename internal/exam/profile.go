// Package exam holds per-exam document submission rules: which format each
// document type must be delivered in, how large it may be, and how wide a
// photographed document may be. Profiles are loaded once from YAML and read
// concurrently by the conversion workers.
package exam

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Formats accepted as conversion targets.
const (
	FormatPDF  = "pdf"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// DocumentRule constrains one document type within an exam profile.
type DocumentRule struct {
	Type     string `yaml:"type"`
	Format   string `yaml:"format"`
	MaxBytes int64  `yaml:"max_bytes"`
	MaxWidth int    `yaml:"max_width,omitempty"`
}

// Profile is the submission rule set of a single exam.
type Profile struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Documents []DocumentRule `yaml:"documents"`
}

// Registry is an immutable set of exam profiles keyed by exam ID.
type Registry struct {
	profiles map[string]*Profile
}

type registryFile struct {
	Exams []*Profile `yaml:"exams"`
}

// DefaultRule is applied when an exam does not constrain a document type.
// PDF is the least destructive target: images are embedded, PDFs pass
// through, and 4 MB is above every exam limit seen in practice.
var DefaultRule = DocumentRule{
	Type:     "*",
	Format:   FormatPDF,
	MaxBytes: 4 << 20,
}

// Load reads and validates an exam registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exam config %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates an exam registry from YAML bytes.
func LoadBytes(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse exam config: %w", err)
	}

	profiles := make(map[string]*Profile, len(file.Exams))
	for _, p := range file.Exams {
		if p.ID == "" {
			return nil, fmt.Errorf("exam profile %q has no id", p.Name)
		}
		if _, exists := profiles[p.ID]; exists {
			return nil, fmt.Errorf("duplicate exam id %q", p.ID)
		}
		for _, rule := range p.Documents {
			if err := validateRule(p.ID, rule); err != nil {
				return nil, err
			}
		}
		profiles[p.ID] = p
	}
	return &Registry{profiles: profiles}, nil
}

func validateRule(examID string, rule DocumentRule) error {
	switch rule.Format {
	case FormatPDF, FormatJPEG, FormatPNG:
	default:
		return fmt.Errorf("exam %q document %q: unsupported format %q", examID, rule.Type, rule.Format)
	}
	if rule.MaxBytes <= 0 {
		return fmt.Errorf("exam %q document %q: max_bytes must be positive, got %d", examID, rule.Type, rule.MaxBytes)
	}
	if rule.MaxWidth < 0 {
		return fmt.Errorf("exam %q document %q: max_width must not be negative, got %d", examID, rule.Type, rule.MaxWidth)
	}
	return nil
}

// Profile returns the profile for an exam ID, or nil when unknown.
func (r *Registry) Profile(examID string) *Profile {
	return r.profiles[examID]
}

// RuleFor returns the submission rule for a document type. Unconstrained
// types fall back to DefaultRule, so callers always get a usable rule.
func (p *Profile) RuleFor(docType string) DocumentRule {
	if p != nil {
		for _, rule := range p.Documents {
			if rule.Type == docType {
				return rule
			}
		}
	}
	return DefaultRule
}

// DefaultRegistry returns the compiled-in profiles used when no config file
// is provided. The limits mirror commonly published exam portal rules.
func DefaultRegistry() *Registry {
	reg, err := LoadBytes([]byte(defaultRegistryYAML))
	if err != nil {
		// The embedded YAML is fixed at compile time; failing to parse it
		// is a programming error.
		panic(fmt.Sprintf("invalid built-in exam registry: %v", err))
	}
	return reg
}

const defaultRegistryYAML = `
exams:
  - id: upsc
    name: UPSC Civil Services
    documents:
      - {type: photo, format: jpeg, max_bytes: 300000, max_width: 1200}
      - {type: signature, format: jpeg, max_bytes: 100000, max_width: 600}
      - {type: marksheet, format: pdf, max_bytes: 2000000}
      - {type: certificate, format: pdf, max_bytes: 2000000}
      - {type: identity, format: pdf, max_bytes: 1000000}
      - {type: category, format: pdf, max_bytes: 1000000}
  - id: ssc
    name: SSC Combined Graduate Level
    documents:
      - {type: photo, format: jpeg, max_bytes: 100000, max_width: 800}
      - {type: signature, format: jpeg, max_bytes: 50000, max_width: 400}
      - {type: marksheet, format: pdf, max_bytes: 1000000}
      - {type: certificate, format: pdf, max_bytes: 1000000}
  - id: gate
    name: GATE
    documents:
      - {type: photo, format: jpeg, max_bytes: 200000, max_width: 1000}
      - {type: signature, format: jpeg, max_bytes: 80000, max_width: 500}
      - {type: marksheet, format: pdf, max_bytes: 2000000}
      - {type: experience, format: pdf, max_bytes: 2000000}
`
