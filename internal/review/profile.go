package review

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one reviewer role as data. Adding a role is a
// configuration change, not a code change: a pass is generic over its
// profile.
type Profile struct {
	Name         string   `yaml:"name" json:"name"`
	Role         string   `yaml:"role" json:"role"`
	Instructions string   `yaml:"instructions" json:"instructions"`
	Categories   []string `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// Validate reports whether the profile is usable.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile has no name")
	}
	if strings.TrimSpace(p.Instructions) == "" {
		return fmt.Errorf("profile %q has no instructions", p.Name)
	}
	return nil
}

const generalInstructions = `You are an expert code reviewer examining a change set.
Review only the changed lines shown. Look for:
- logic errors and incorrect behavior
- off-by-one mistakes and boundary conditions
- misuse of APIs or language features
- broken error handling and ignored failure paths
- concurrency hazards introduced by the change
Do not comment on style preferences unless they hide a defect.
Every finding must be concrete and actionable.`

const securityInstructions = `You are a security-focused code reviewer examining a change set.
Review only the changed lines shown. Look for:
- injection risks (SQL, command, template, header)
- missing or weakened authentication and authorization checks
- secrets, keys, or credentials committed in code
- unsafe deserialization and unvalidated input
- path traversal and unsafe file handling
- weak cryptography or insecure randomness
Rate anything exploitable as high or critical. Ignore purely stylistic concerns.`

const qualityInstructions = `You are a code quality reviewer examining a change set.
Review only the changed lines shown. Look for:
- misleading names and confusing structure
- duplicated logic that should be shared
- functions doing too much or nested too deeply
- missing or inadequate test coverage for the change
- swallowed errors and silent fallbacks
- dead code and unused results
Prefer few, high-value findings over exhaustive nitpicking.`

// BuiltinProfiles returns the reviewer roles that ship with the tool, in
// their canonical order.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:         "general",
			Role:         "general correctness review",
			Instructions: generalInstructions,
			Categories:   []string{"bug", "correctness", "performance"},
		},
		{
			Name:         "security",
			Role:         "security review",
			Instructions: securityInstructions,
			Categories:   []string{"security"},
		},
		{
			Name:         "quality",
			Role:         "maintainability and quality review",
			Instructions: qualityInstructions,
			Categories:   []string{"quality", "maintainability", "testing"},
		},
	}
}

// LoadProfileFile reads one profile from a YAML file.
func LoadProfileFile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile file: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadProfileDir reads every *.yaml/*.yml profile in dir, sorted by file
// name for a stable order. A missing directory is not an error.
func LoadProfileDir(dir string) ([]Profile, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profile dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var profiles []Profile
	for _, name := range names {
		p, err := LoadProfileFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// ResolveProfiles returns the active profiles in the order given by names.
// File-based profiles override builtins with the same name. An empty names
// list selects every builtin.
func ResolveProfiles(names []string, dir string) ([]Profile, error) {
	available := make(map[string]Profile)
	var order []string
	add := func(p Profile) {
		if _, seen := available[p.Name]; !seen {
			order = append(order, p.Name)
		}
		available[p.Name] = p
	}
	for _, p := range BuiltinProfiles() {
		add(p)
	}
	fromDir, err := LoadProfileDir(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range fromDir {
		add(p)
	}

	if len(names) == 0 {
		names = order
	}
	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		p, ok := available[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown reviewer profile %q", name)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
