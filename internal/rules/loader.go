package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/gzhole/opguard/internal/rules/defaults"
	"github.com/gzhole/opguard/internal/trigger"
)

// EngineVersion is checked against a manifest's min_engine_version.
const EngineVersion = "1.2.0"

const (
	ManifestFile = "manifest.yaml"
	PatternsDir  = "patterns"
)

var (
	// ErrManifestNotFound is fatal: a rule set without a manifest cannot be
	// versioned or cross-checked.
	ErrManifestNotFound = errors.New("manifest not found")

	ErrInvalidManifest    = errors.New("invalid manifest")
	ErrIncompatibleEngine = errors.New("rule set requires a newer engine")
	ErrInvalidPattern     = errors.New("invalid pattern definition")
	ErrDuplicatePattern   = errors.New("duplicate pattern")
	ErrUnknownPattern     = errors.New("indexed pattern has no definition")
	ErrUnindexedPattern   = errors.New("pattern is not listed in the manifest index")
	ErrSeverityMismatch   = errors.New("pattern severity does not match its index bucket")
)

// patternFile is the on-disk form of one pattern definition.
type patternFile struct {
	Name            string           `yaml:"name"`
	Category        string           `yaml:"category"`
	Severity        Severity         `yaml:"severity"`
	Description     string           `yaml:"description"`
	Trigger         trigger.Spec     `yaml:"trigger"`
	FailureModes    []FailureMode    `yaml:"failure_modes"`
	Correction      *Correction      `yaml:"correction"`
	ValidationRules []ValidationRule `yaml:"validation_rules"`
}

// Load reads a rule set from a directory laid out as:
//
//	<dir>/
//	  manifest.yaml
//	  patterns/
//	    <pattern>.yaml     one pattern per file
//	    _<pattern>.yaml    disabled (skipped, dropped from the index)
func Load(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path.Join(dir, ManifestFile), ErrManifestNotFound)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rules path %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

// Default loads the rule set embedded in the binary.
func Default() (*Store, error) {
	return LoadFS(defaults.FS)
}

// LoadFS reads a rule set from fsys (see Load for the layout).
func LoadFS(fsys fs.FS) (*Store, error) {
	manifest, version, err := loadManifest(fsys)
	if err != nil {
		return nil, err
	}

	patterns, disabled, err := loadPatterns(fsys)
	if err != nil {
		return nil, err
	}

	store := &Store{
		manifest: manifest,
		version:  version,
		byName:   make(map[string]int, len(patterns)),
		disabled: disabled,
	}

	for _, p := range patterns {
		if _, dup := store.byName[p.Name]; dup {
			return nil, fmt.Errorf("%s: %q: %w", p.Source, p.Name, ErrDuplicatePattern)
		}
		store.byName[p.Name] = len(store.patterns)
		store.patterns = append(store.patterns, p)
	}

	if err := store.reconcileIndex(); err != nil {
		return nil, err
	}
	return store, nil
}

func loadManifest(fsys fs.FS) (Manifest, *semver.Version, error) {
	var m Manifest

	data, err := fs.ReadFile(fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = fs.ReadFile(fsys, "manifest.yml")
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil, ErrManifestNotFound
		}
		return m, nil, fmt.Errorf("reading manifest: %w", err)
	}

	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	if strings.TrimSpace(m.Version) == "" {
		return m, nil, fmt.Errorf("%w: version is required", ErrInvalidManifest)
	}
	version, err := semver.StrictNewVersion(strings.TrimPrefix(m.Version, "v"))
	if err != nil {
		return m, nil, fmt.Errorf("%w: version %q is not semver: %v", ErrInvalidManifest, m.Version, err)
	}

	if m.MinEngineVersion != "" {
		expr := m.MinEngineVersion
		if _, err := semver.NewVersion(expr); err == nil {
			expr = ">= " + expr // a bare version is a lower bound
		}
		constraint, err := semver.NewConstraint(expr)
		if err != nil {
			return m, nil, fmt.Errorf("%w: min_engine_version %q: %v", ErrInvalidManifest, m.MinEngineVersion, err)
		}
		if !constraint.Check(semver.MustParse(EngineVersion)) {
			return m, nil, fmt.Errorf("%w: needs %s, engine is %s", ErrIncompatibleEngine, m.MinEngineVersion, EngineVersion)
		}
	}

	return m, version, nil
}

// loadPatterns reads every pattern file in lexical order. A missing
// patterns directory is not an error.
func loadPatterns(fsys fs.FS) ([]Pattern, []string, error) {
	entries, err := fs.ReadDir(fsys, PatternsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading %s: %w", PatternsDir, err)
	}

	var patterns []Pattern
	var disabled []string

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		file := path.Join(PatternsDir, entry.Name())

		p, err := loadPattern(fsys, file)
		if err != nil {
			return nil, nil, err
		}

		if strings.HasPrefix(entry.Name(), "_") {
			disabled = append(disabled, p.Name)
			continue
		}
		patterns = append(patterns, p)
	}

	return patterns, disabled, nil
}

func loadPattern(fsys fs.FS, file string) (Pattern, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return Pattern{}, err
	}

	if err := validatePatternDocument(data); err != nil {
		return Pattern{}, fmt.Errorf("%s: %w: %v", file, ErrInvalidPattern, err)
	}

	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Pattern{}, fmt.Errorf("%s: %w: %v", file, ErrInvalidPattern, err)
	}

	expr, err := trigger.Compile(pf.Trigger)
	if err != nil {
		return Pattern{}, fmt.Errorf("%s: pattern %q: %w", file, pf.Name, err)
	}

	return Pattern{
		Name:            pf.Name,
		Category:        pf.Category,
		Severity:        pf.Severity,
		Description:     pf.Description,
		Trigger:         expr,
		FailureModes:    pf.FailureModes,
		Correction:      pf.Correction,
		ValidationRules: pf.ValidationRules,
		Source:          file,
	}, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
