package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Agent struct {
		MaxTurnsPerStep int  `json:"max_turns_per_step"`
		ParallelTools   bool `json:"parallel_tools"`
	} `json:"agent"`
	LLM struct {
		Provider        string                `json:"provider"`
		Model           string                `json:"model"`
		APIKey          string                `json:"api_key,omitempty"`
		BaseURL         string                `json:"base_url,omitempty"`
		Project         string                `json:"project,omitempty"`
		Location        string                `json:"location,omitempty"`
		TimeoutSeconds  int                   `json:"timeout_seconds"`
		MaxFailures     int                   `json:"max_failures"`
		CooldownSeconds int                   `json:"cooldown_seconds"`
		Temperature     *float32              `json:"temperature,omitempty"`
		MaxTokens       *int                  `json:"max_tokens,omitempty"`
		Roles           map[string]LLMRoleCfg `json:"roles,omitempty"`
	} `json:"llm"`
	Tools struct {
		TimeoutSeconds       int `json:"timeout_seconds"`
		SearchTimeoutSeconds int `json:"search_timeout_seconds"`
	} `json:"tools"`
	Session struct {
		LogDir string `json:"log_dir"`
	} `json:"session"`
	History struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
	} `json:"history"`
	UI struct {
		Verbose bool `json:"verbose"`
		NoColor bool `json:"no_color"`
	} `json:"ui"`
}

type LLMRoleCfg struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Default returns the built-in configuration every loaded file is merged onto.
func Default() Config {
	var cfg Config
	cfg.Agent.MaxTurnsPerStep = 8
	cfg.Agent.ParallelTools = true
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.TimeoutSeconds = 120
	cfg.LLM.MaxFailures = 3
	cfg.LLM.CooldownSeconds = 60
	temp := float32(0)
	maxTokens := 4096
	cfg.LLM.Temperature = &temp
	cfg.LLM.MaxTokens = &maxTokens
	cfg.Tools.TimeoutSeconds = 30
	cfg.Tools.SearchTimeoutSeconds = 60
	cfg.History.Enabled = true
	cfg.History.Path = DefaultHistoryPath()
	return cfg
}

func DefaultPath() string {
	return filepath.Join(configDir(), "config.json")
}

func ProfilePath(profile string) string {
	return filepath.Join(configDir(), "profiles", profile+".json")
}

func DefaultHistoryPath() string {
	return filepath.Join(configDir(), "history.db")
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "macassess")
	}
	return ".macassess"
}

// Load merges the built-in defaults, the default file and an optional profile.
// The default file may be absent unless it was named explicitly; a named
// profile must exist.
func Load(defaultPath, profilePath string) (Config, []string, error) {
	paths := []string{}
	merged, err := toMap(Default())
	if err != nil {
		return Config{}, paths, err
	}

	required := defaultPath != ""
	if defaultPath == "" {
		defaultPath = DefaultPath()
	}
	loaded, err := mergeFile(merged, defaultPath, required)
	if err != nil {
		return Config{}, paths, err
	}
	if loaded {
		paths = append(paths, defaultPath)
	}

	if profilePath != "" {
		if _, err := mergeFile(merged, profilePath, true); err != nil {
			return Config{}, paths, err
		}
		paths = append(paths, profilePath)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return Config{}, paths, fmt.Errorf("marshal merged config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, paths, fmt.Errorf("unmarshal merged config: %w", err)
	}

	return cfg, paths, nil
}

func toMap(cfg Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}
	return out, nil
}

func mergeFile(dst map[string]any, path string, required bool) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return false, nil
		}
		return false, fmt.Errorf("config file not found: %s", path)
	}
	if info.IsDir() {
		return false, fmt.Errorf("config path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read config: %s: %w", path, err)
	}
	var src map[string]any
	if err := json.Unmarshal(data, &src); err != nil {
		return false, fmt.Errorf("parse config: %s: %w", path, err)
	}
	deepMerge(dst, src)
	return true, nil
}

func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		if existing, ok := dst[key]; ok {
			if existingMap, ok := existing.(map[string]any); ok {
				deepMerge(existingMap, srcMap)
				continue
			}
		}
		newMap := map[string]any{}
		deepMerge(newMap, srcMap)
		dst[key] = newMap
	}
}

func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
