// manifest parses and merges the declarative asset manifests a widget kind
// ships: an ordered list of scripts and stylesheets under a source
// directory. Manifests are resolved at page build time; nothing here
// fetches or bundles assets, and inclusion is idempotent so the same
// dependency declared by several widgets lands on the page once.
package manifest

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDependency is returned for manifest entries missing a name or
// version.
var ErrInvalidDependency = errors.New("dependency requires a name and version")

// Dependency declares one required asset bundle for a widget kind.
type Dependency struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Src         string     `yaml:"src"`
	Scripts     stringList `yaml:"script"`
	Stylesheets stringList `yaml:"stylesheet"`
}

// stringList accepts both scalar and sequence YAML forms, since manifests
// commonly declare a single script without list syntax.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var one string
		if err := node.Decode(&one); err != nil {
			return err
		}
		*s = stringList{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = stringList(many)
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// Manifest is an ordered list of dependencies for one or more widget kinds.
type Manifest struct {
	Dependencies []Dependency `yaml:"dependencies"`
}

// Load decodes a manifest from r. Entries must carry a name and version;
// everything else is optional.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	for _, dep := range m.Dependencies {
		if dep.Name == "" || dep.Version == "" {
			return nil, fmt.Errorf("dependency %+v: %w", dep, ErrInvalidDependency)
		}
	}
	return &m, nil
}

// LoadFile reads a manifest from path.
func LoadFile(filepath string) (*Manifest, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Merge folds other's dependencies into m. Duplicate names collapse to a
// single entry keeping the higher version, which makes repeated inclusion
// of a shared dependency a no-op. Relative order of first appearance is
// preserved.
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}
	for _, dep := range other.Dependencies {
		if i := m.index(dep.Name); i >= 0 {
			if newerVersion(dep.Version, m.Dependencies[i].Version) {
				m.Dependencies[i] = dep
			}
			continue
		}
		m.Dependencies = append(m.Dependencies, dep)
	}
}

func (m *Manifest) index(name string) int {
	for i, dep := range m.Dependencies {
		if dep.Name == name {
			return i
		}
	}
	return -1
}

// newerVersion reports whether a is a strictly higher version than b,
// comparing as semver where possible and lexically otherwise.
func newerVersion(a, b string) bool {
	ca, cb := canonical(a), canonical(b)
	if ca != "" && cb != "" {
		return semver.Compare(ca, cb) > 0
	}
	return a > b
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// Tags renders the manifest as script and link tags in declared order.
// prefix is joined ahead of each dependency's src directory; resolving
// what the resulting references point at is the hosting environment's
// concern.
func (m *Manifest) Tags(prefix string) template.HTML {
	var b strings.Builder
	for _, dep := range m.Dependencies {
		base := path.Join(prefix, dep.Src)
		for _, css := range dep.Stylesheets {
			fmt.Fprintf(&b, "<link href=\"%s\" rel=\"stylesheet\" />\n",
				template.HTMLEscapeString(path.Join(base, css)))
		}
		for _, script := range dep.Scripts {
			fmt.Fprintf(&b, "<script src=\"%s\"></script>\n",
				template.HTMLEscapeString(path.Join(base, script)))
		}
	}
	return template.HTML(b.String())
}
