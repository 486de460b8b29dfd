package inference

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// #region persona

const defaultPersona = "You are an assistant that helps with computer tasks. You are running on a system with Linux."

// PersonaLoader resolves the assistant's self-description text, which
// is injected into every prompt and also drives room fallback during
// command slot resolution.
type PersonaLoader struct {
	locations []string
}

// NewPersonaLoader builds a loader that tries each candidate file in
// order under the given store directory, then falls back to relative
// paths.
func NewPersonaLoader(storeDir string) *PersonaLoader {
	return &PersonaLoader{
		locations: []string{
			filepath.Join(storeDir, "self", "office.txt"),
			filepath.Join(storeDir, "self", "generic.txt"),
			filepath.Join("stores", "self", "office.txt"),
			filepath.Join("stores", "self", "generic.txt"),
		},
	}
}

// Load returns the first readable persona file's contents, or the
// built-in default when none exist.
func (p *PersonaLoader) Load() string {
	for _, loc := range p.locations {
		data, err := os.ReadFile(loc)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text != "" {
			return text
		}
	}
	log.Printf("[Inference] no persona file found, using default")
	return defaultPersona
}

// #endregion persona
