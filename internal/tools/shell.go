package tools

func shellTools() []Tool {
	return []Tool{
		{
			Name:        "run_shell_command",
			Category:    CategoryShell,
			Description: "Execute an arbitrary shell command. Use it only when no specialized tool covers the need.",
			Params: []Param{
				{Name: "command", Description: "The shell command to execute.", Required: true},
			},
			run: func(c call) string {
				return Format(c.sh(c.args["command"]), FormatOptions{Stderr: true, ExitCode: true})
			},
		},
	}
}
