package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"vehicle-tracker/models"
)

//go:embed makes.yaml
var defaultMakes []byte

// Registry lists every manufacturer the tracker can crawl.
type Registry struct {
	Manufacturers []models.Manufacturer `yaml:"manufacturers" validate:"required,min=1,dive"`
}

// LoadRegistry reads the manufacturer registry from path, or the built-in
// one when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	data := defaultMakes
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read makes file %q: %w", path, err)
		}
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates a YAML registry.
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("config: parse makes: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks field constraints and that keys are unique.
func (r *Registry) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid makes: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid makes: %w", err)
	}

	seen := make(map[string]struct{}, len(r.Manufacturers))
	for _, m := range r.Manufacturers {
		key := strings.ToLower(m.Key)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("config: duplicate manufacturer key %q", m.Key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Lookup finds a manufacturer by key or display name, case-insensitively.
func (r *Registry) Lookup(name string) (models.Manufacturer, bool) {
	name = strings.TrimSpace(name)
	for _, m := range r.Manufacturers {
		if strings.EqualFold(m.Key, name) || strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return models.Manufacturer{}, false
}
