package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vbonduro/stagecanvas/internal/domain"
)

//go:embed default_layout.yaml
var defaultLayout []byte

// Layout is the initial set of staging areas and materials loaded into an
// empty store.
type Layout struct {
	Areas []domain.Area `yaml:"areas"`
	Items []domain.Item `yaml:"items"`
}

// LoadLayout reads a YAML layout from path, or the built-in layout when
// path is empty.
func LoadLayout(path string) (*Layout, error) {
	data := defaultLayout
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read layout: %w", err)
		}
	}
	return ParseLayout(data)
}

func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	for i := range l.Items {
		if l.Items[i].Status == "" {
			l.Items[i].Status = domain.StatusAvailable
		}
	}
	return &l, nil
}
