package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvLLMTemperature = "MACASSESS_LLM_TEMPERATURE"
	EnvLLMMaxTokens   = "MACASSESS_LLM_MAX_TOKENS"

	envRolePrefix = "MACASSESS_LLM_"
)

// LLM roles, one per phase that talks to the model.
const (
	RolePlanner  = "planner"
	RoleExecutor = "executor"
	RoleReporter = "reporter"
)

// RoleOptions is the resolved sampling configuration for one role.
type RoleOptions struct {
	Temperature float32
	MaxTokens   int
}

// Roles lists the phases that talk to the model, in loop order.
var Roles = []string{RolePlanner, RoleExecutor, RoleReporter}

// RoleOptions resolves every phase role at once with the given fallbacks.
func (cfg Config) RoleOptions(fallbackTemp float32, fallbackMaxTokens int) map[string]RoleOptions {
	out := make(map[string]RoleOptions, len(Roles))
	for _, role := range Roles {
		temp, maxTokens := cfg.ResolveLLMRoleOptions(role, fallbackTemp, fallbackMaxTokens)
		out[role] = RoleOptions{Temperature: temp, MaxTokens: maxTokens}
	}
	return out
}

// ResolveLLMRoleOptions layers, lowest first: fallbacks, llm.temperature and
// llm.max_tokens, llm.roles.<role>, MACASSESS_LLM_TEMPERATURE and
// MACASSESS_LLM_MAX_TOKENS, then MACASSESS_LLM_<ROLE>_TEMPERATURE and
// MACASSESS_LLM_<ROLE>_MAX_TOKENS.
func (cfg Config) ResolveLLMRoleOptions(role string, fallbackTemp float32, fallbackMaxTokens int) (float32, int) {
	opts := RoleOptions{Temperature: clampTemperature(fallbackTemp), MaxTokens: clampMaxTokens(fallbackMaxTokens)}
	opts.set(cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	if roleCfg, ok := cfg.roleCfg(role); ok {
		opts.set(roleCfg.Temperature, roleCfg.MaxTokens)
	}
	opts.setFromEnv(EnvLLMTemperature, EnvLLMMaxTokens)
	if key := roleEnvKey(role); key != "" {
		opts.setFromEnv(envRolePrefix+key+"_TEMPERATURE", envRolePrefix+key+"_MAX_TOKENS")
	}
	return opts.Temperature, opts.MaxTokens
}

func (o *RoleOptions) set(temp *float32, maxTokens *int) {
	if temp != nil {
		o.Temperature = clampTemperature(*temp)
	}
	if maxTokens != nil {
		o.MaxTokens = clampMaxTokens(*maxTokens)
	}
}

// setFromEnv ignores unset and unparsable values.
func (o *RoleOptions) setFromEnv(tempKey, maxTokensKey string) {
	if raw, ok := envValue(tempKey); ok {
		if parsed, err := strconv.ParseFloat(raw, 32); err == nil {
			o.Temperature = clampTemperature(float32(parsed))
		}
	}
	if raw, ok := envValue(maxTokensKey); ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			o.MaxTokens = clampMaxTokens(parsed)
		}
	}
}

// roleCfg matches llm.roles keys case-insensitively, so "Executor" in a
// profile configures the executor.
func (cfg Config) roleCfg(role string) (LLMRoleCfg, bool) {
	for key, value := range cfg.LLM.Roles {
		if strings.EqualFold(strings.TrimSpace(key), role) {
			return value, true
		}
	}
	return LLMRoleCfg{}, false
}

func roleEnvKey(role string) string {
	for _, known := range Roles {
		if strings.EqualFold(role, known) {
			return strings.ToUpper(known)
		}
	}
	return ""
}

func envValue(key string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	return raw, raw != ""
}

func clampTemperature(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 2:
		return 2
	}
	return v
}

func clampMaxTokens(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
