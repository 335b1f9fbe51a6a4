package config

import "testing"

func TestResolveLLMRoleOptionsPrecedence(t *testing.T) {
	t.Setenv(EnvLLMTemperature, "")
	t.Setenv(EnvLLMMaxTokens, "")
	t.Setenv("MACASSESS_LLM_EXECUTOR_TEMPERATURE", "")
	t.Setenv("MACASSESS_LLM_EXECUTOR_MAX_TOKENS", "")

	baseTemp := float32(0.25)
	baseTokens := 900
	roleTemp := float32(0.11)
	roleTokens := 350
	cfg := Config{}
	cfg.LLM.Temperature = &baseTemp
	cfg.LLM.MaxTokens = &baseTokens
	cfg.LLM.Roles = map[string]LLMRoleCfg{
		"Executor": {
			Temperature: &roleTemp,
			MaxTokens:   &roleTokens,
		},
	}

	temp, maxTokens := cfg.ResolveLLMRoleOptions(RoleExecutor, 0.7, 1200)
	if temp != roleTemp || maxTokens != roleTokens {
		t.Fatalf("expected role override (%v,%d), got (%v,%d)", roleTemp, roleTokens, temp, maxTokens)
	}
}

func TestResolveLLMRoleOptionsEnvOverrides(t *testing.T) {
	t.Setenv(EnvLLMTemperature, "0.3")
	t.Setenv(EnvLLMMaxTokens, "800")
	t.Setenv("MACASSESS_LLM_PLANNER_TEMPERATURE", "0.05")
	t.Setenv("MACASSESS_LLM_PLANNER_MAX_TOKENS", "1600")

	cfg := Config{}
	temp, maxTokens := cfg.ResolveLLMRoleOptions(RolePlanner, 0.2, 1000)
	if temp != float32(0.05) {
		t.Fatalf("expected role env temperature 0.05, got %v", temp)
	}
	if maxTokens != 1600 {
		t.Fatalf("expected role env max tokens 1600, got %d", maxTokens)
	}
}

func TestResolveLLMRoleOptionsClampsValues(t *testing.T) {
	t.Setenv(EnvLLMTemperature, "")
	t.Setenv(EnvLLMMaxTokens, "")

	baseTemp := float32(9.5)
	baseTokens := -10
	cfg := Config{}
	cfg.LLM.Temperature = &baseTemp
	cfg.LLM.MaxTokens = &baseTokens
	temp, maxTokens := cfg.ResolveLLMRoleOptions(RoleReporter, -2, -5)
	if temp != 2 {
		t.Fatalf("expected clamped temperature 2, got %v", temp)
	}
	if maxTokens != 0 {
		t.Fatalf("expected clamped max tokens 0, got %d", maxTokens)
	}
}

func TestRoleOptionsCoversEveryPhase(t *testing.T) {
	t.Setenv(EnvLLMTemperature, "")
	t.Setenv(EnvLLMMaxTokens, "")
	for _, key := range []string{"PLANNER", "EXECUTOR", "REPORTER"} {
		t.Setenv("MACASSESS_LLM_"+key+"_TEMPERATURE", "")
		t.Setenv("MACASSESS_LLM_"+key+"_MAX_TOKENS", "")
	}

	opts := Default().RoleOptions(0.5, 100)
	if len(opts) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(opts))
	}
	for role, opt := range opts {
		if opt.Temperature != 0 || opt.MaxTokens != 4096 {
			t.Fatalf("role %s: expected defaults (0,4096), got (%v,%d)", role, opt.Temperature, opt.MaxTokens)
		}
	}
}

func TestRoleEnvKeyOnlyForKnownRoles(t *testing.T) {
	if got := roleEnvKey("Reporter"); got != "REPORTER" {
		t.Fatalf("expected REPORTER, got %q", got)
	}
	if got := roleEnvKey("auditor"); got != "" {
		t.Fatalf("unknown role should have no env key, got %q", got)
	}
}

func TestResolveLLMRoleOptionsIgnoresBadEnv(t *testing.T) {
	t.Setenv(EnvLLMTemperature, "warm")
	t.Setenv(EnvLLMMaxTokens, "lots")
	t.Setenv("MACASSESS_LLM_REPORTER_TEMPERATURE", "")
	t.Setenv("MACASSESS_LLM_REPORTER_MAX_TOKENS", "")

	cfg := Config{}
	cfg.LLM.Roles = map[string]LLMRoleCfg{" reporter ": {MaxTokens: intPtr(2048)}}
	temp, maxTokens := cfg.ResolveLLMRoleOptions(RoleReporter, 0.4, 1000)
	if temp != float32(0.4) || maxTokens != 2048 {
		t.Fatalf("expected (0.4,2048), got (%v,%d)", temp, maxTokens)
	}
}

func intPtr(v int) *int { return &v }
