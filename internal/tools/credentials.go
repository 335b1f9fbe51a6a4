package tools

var cloudConfigPaths = []struct{ name, path string }{
	{"AWS", "~/.aws"},
	{"GCP", "~/.config/gcloud"},
	{"Azure", "~/.azure"},
	{"Kubernetes", "~/.kube"},
}

func credentialTools() []Tool {
	return []Tool{
		{
			Name:        "list_keychains",
			Category:    CategoryCredentials,
			Description: "List all keychains accessible to the current user. Keychains hold passwords, certificates, and other secrets.",
			run: func(c call) string {
				return output(c.sh("security list-keychains"))
			},
		},
		{
			Name:        "find_ssh_keys",
			Category:    CategoryCredentials,
			Description: "Find SSH keys in ~/.ssh with their permissions. Compromised keys allow lateral movement.",
			run: func(c call) string {
				return output(c.sh("ls -la ~/.ssh/ 2>/dev/null || echo 'No .ssh directory found'"))
			},
		},
		{
			Name:        "find_aws_credentials",
			Category:    CategoryCredentials,
			Description: "Check for AWS credential and config files.",
			run: func(c call) string {
				commands := []string{
					"ls -la ~/.aws/ 2>/dev/null || echo 'No .aws directory'",
					"cat ~/.aws/credentials 2>/dev/null | head -5 || echo 'No credentials file'",
				}
				parts := make([]string, 0, len(commands))
				for _, command := range commands {
					parts = append(parts, detail(c.sh(command)))
				}
				return joinLines(parts)
			},
		},
		{
			Name:        "find_cloud_configs",
			Category:    CategoryCredentials,
			Description: "Find cloud provider configuration directories (AWS, GCP, Azure, Kubernetes).",
			run: func(c call) string {
				parts := []string{}
				for _, entry := range cloudConfigPaths {
					result := c.sh("ls -la " + entry.path + " 2>/dev/null")
					// ls exits non-zero for a missing directory.
					if result.Success() || interrupted(result) {
						parts = append(parts, section(entry.name+" ("+entry.path+")", detail(result)))
					}
				}
				if len(parts) == 0 {
					return "No cloud config directories found"
				}
				return joinLines(parts)
			},
		},
	}
}
