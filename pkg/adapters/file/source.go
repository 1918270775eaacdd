package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/vigil/pkg/domain"
)

// Extensions lists the definition file types a Source picks up.
var Extensions = []string{".yaml", ".yml", ".json", ".toml"}

// Source implements ports.SchemaSource over a directory of definition files.
// The schema name is the file name without its extension; nested directories
// are not scanned.
type Source struct {
	Dir string
}

// NewSource creates a source reading definitions from dir.
func NewSource(dir string) *Source {
	return &Source{Dir: dir}
}

func (s *Source) files() (map[string]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}
	found := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !isDefinition(ext) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if prev, dup := found[name]; dup {
			return nil, fmt.Errorf("schema %q is defined twice (%s and %s)", name, prev, entry.Name())
		}
		found[name] = entry.Name()
	}
	return found, nil
}

// GetDefinition reads the definition file of name.
func (s *Source) GetDefinition(name string) ([]byte, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	file, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
	}
	return os.ReadFile(filepath.Join(s.Dir, file))
}

// ListDefinitions returns the names of all definition files, sorted.
func (s *Source) ListDefinitions() ([]string, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func isDefinition(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
