package tools

func systemTools() []Tool {
	return []Tool{
		{
			Name:        "get_system_info",
			Category:    CategorySystem,
			Description: "Get basic macOS system information including version, hardware, and hostname.",
			run: func(c call) string {
				commands := []struct{ name, command string }{
					{"hostname", "hostname"},
					{"os_version", "sw_vers"},
					{"hardware", "system_profiler SPHardwareDataType 2>/dev/null | head -20"},
				}
				parts := make([]string, 0, len(commands))
				for _, cmd := range commands {
					parts = append(parts, section(cmd.name, detail(c.sh(cmd.command))))
				}
				return joinLines(parts)
			},
		},
		{
			Name:        "get_current_user",
			Category:    CategorySystem,
			Description: "Get information about the currently logged-in user and their groups.",
			run: func(c call) string {
				return output(c.sh("id && whoami && groups"))
			},
		},
	}
}
