package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Heuristics holds the externally tunable rules of the health engine.
// The keyword set drives the interaction classifier; keeping it in a file
// lets operators extend it without a redeploy when new automation channels
// show up in imported data.
type Heuristics struct {
	AutomationKeywords []string `yaml:"automation_keywords"`
}

// LoadHeuristics reads a YAML heuristics file. A missing path returns an
// empty Heuristics and no error so callers can fall back to built-in defaults.
func LoadHeuristics(path string) (Heuristics, error) {
	var h Heuristics
	if path == "" {
		return h, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return h, err
	}

	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, err
	}

	return h, nil
}
