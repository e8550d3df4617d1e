package formatter

import "fmt"

// Preset is a named line template.
type Preset struct {
	Name        string
	Template    string
	Description string
}

// PresetRegistry manages template presets.
type PresetRegistry interface {
	// Get returns a preset by name.
	Get(name string) (*Preset, error)

	// List returns all available presets.
	List() []Preset

	// Register adds a new preset.
	Register(preset Preset) error
}

type presetRegistry struct {
	presets map[string]Preset
	order   []string
}

// NewPresetRegistry creates a registry holding the built-in presets.
func NewPresetRegistry() PresetRegistry {
	registry := &presetRegistry{
		presets: make(map[string]Preset),
		order:   []string{},
	}
	registry.registerDefaults()
	return registry
}

func (pr *presetRegistry) registerDefaults() {
	presets := []Preset{
		{
			Name:        "line",
			Template:    "#{{id}} {{name}} [{{status-label}}] {{assignee}}",
			Description: "One readable line per lead",
		},
		{
			Name:        "contact",
			Template:    "{{name}} <{{email}}> {{phone}}",
			Description: "Contact details",
		},
		{
			Name:        "tsv",
			Template:    "{{id}}\t{{status}}\t{{assignee-id}}\t{{first-name}}\t{{last-name}}\t{{email}}",
			Description: "Tab separated values for scripts",
		},
		{
			Name:        "pipeline",
			Template:    "{{status-code}} {{status}} {{id}}",
			Description: "Pipeline stage code, status and ID, sortable with sort -n",
		},
	}

	for _, preset := range presets {
		pr.presets[preset.Name] = preset
		pr.order = append(pr.order, preset.Name)
	}
}

// Get returns a preset by name, or an error if not found.
func (pr *presetRegistry) Get(name string) (*Preset, error) {
	preset, ok := pr.presets[name]
	if !ok {
		return nil, fmt.Errorf("preset not found: %s", name)
	}
	return &preset, nil
}

// List returns all available presets in registration order.
func (pr *presetRegistry) List() []Preset {
	result := make([]Preset, 0, len(pr.order))
	for _, name := range pr.order {
		if preset, ok := pr.presets[name]; ok {
			result = append(result, preset)
		}
	}
	return result
}

// Register adds a new preset or overwrites an existing one.
func (pr *presetRegistry) Register(preset Preset) error {
	if preset.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	if preset.Template == "" {
		return fmt.Errorf("preset template cannot be empty")
	}
	if _, err := NewTemplateEngine().Parse(preset.Template); err != nil {
		return fmt.Errorf("preset %s: %w", preset.Name, err)
	}

	if _, exists := pr.presets[preset.Name]; !exists {
		pr.order = append(pr.order, preset.Name)
	}
	pr.presets[preset.Name] = preset
	return nil
}

// Resolve returns the template for a preset name, or the input itself when it
// is not a preset name.
func Resolve(registry PresetRegistry, nameOrTemplate string) string {
	if preset, err := registry.Get(nameOrTemplate); err == nil {
		return preset.Template
	}
	return nameOrTemplate
}
