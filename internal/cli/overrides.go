package cli

import (
	"strings"

	"github.com/Jawbreaker1/macassess/internal/config"
)

// Overrides are command-line values layered over the loaded config. Empty
// strings and nil pointers leave the config untouched.
type Overrides struct {
	Provider string
	Model    string
	APIKey   string
	Project  string
	Location string
	LogDir   string
	History  *bool
	Verbose  bool
	NoColor  bool
}

func (o Overrides) Apply(cfg *config.Config) {
	if v := strings.ToLower(strings.TrimSpace(o.Provider)); v != "" {
		// A model configured for another provider would be sent to the wrong API.
		if v != strings.ToLower(cfg.LLM.Provider) {
			cfg.LLM.Model = ""
		}
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(o.Model); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(o.APIKey); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(o.Project); v != "" {
		cfg.LLM.Project = v
	}
	if v := strings.TrimSpace(o.Location); v != "" {
		cfg.LLM.Location = v
	}
	if v := strings.TrimSpace(o.LogDir); v != "" {
		cfg.Session.LogDir = v
	}
	if o.History != nil {
		cfg.History.Enabled = *o.History
	}
	if o.Verbose {
		cfg.UI.Verbose = true
	}
	if o.NoColor {
		cfg.UI.NoColor = true
	}
}
