package tools

func processTools() []Tool {
	return []Tool{
		{
			Name:        "list_running_processes",
			Category:    CategoryProcesses,
			Description: "List running processes with their users. Reveals security tools, monitoring agents, and sensitive applications.",
			run: func(c call) string {
				return output(c.sh("ps aux | head -50"))
			},
		},
		{
			Name:        "list_installed_apps",
			Category:    CategoryProcesses,
			Description: "List applications installed in /Applications.",
			run: func(c call) string {
				return output(c.sh("ls -1 /Applications/ | head -30"))
			},
		},
		{
			Name:        "list_launch_agents",
			Category:    CategoryProcesses,
			Description: "List user and system launch agents, the common macOS persistence mechanism.",
			run: func(c call) string {
				commands := []string{
					"echo '=== User Launch Agents ===' && ls -la ~/Library/LaunchAgents/ 2>/dev/null || echo 'None'",
					"echo '=== System Launch Agents ===' && ls -la /Library/LaunchAgents/ 2>/dev/null || echo 'None'",
				}
				parts := make([]string, 0, len(commands))
				for _, command := range commands {
					parts = append(parts, detail(c.sh(command)))
				}
				return joinLines(parts)
			},
		},
	}
}
