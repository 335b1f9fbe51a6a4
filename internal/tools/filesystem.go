package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

var sensitivePatterns = []string{
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*password*",
	"*credential*",
	"*.env",
	"*secret*",
	"*.keystore",
	"*.jks",
}

const shellMetacharacters = "`$;&|<>(){}[]*?!\\\"'\n\r"

func filesystemTools() []Tool {
	return []Tool{
		{
			Name:        "find_sensitive_files",
			Category:    CategoryFilesystem,
			Description: "Search for potentially sensitive files (private keys, keystores, credential and secret files) up to four levels deep.",
			Params: []Param{
				{Name: "search_path", Description: "Directory to search (default: home directory).", Default: "~"},
			},
			Search:   true,
			validate: validateSearchPath,
			run: func(c call) string {
				root := expandHome(c.args["search_path"], c.home)
				names := make([]string, 0, len(sensitivePatterns))
				for _, pattern := range sensitivePatterns {
					names = append(names, "-name "+shellQuote(pattern))
				}
				command := fmt.Sprintf("find %s -maxdepth 4 \\( %s \\) 2>/dev/null | head -30",
					shellQuote(root), strings.Join(names, " -o "))
				result := c.sh(command)
				if !result.Success() {
					return detail(result)
				}
				if result.Stdout == "" {
					return "No sensitive files found"
				}
				return result.Stdout
			},
		},
	}
}

func validateSearchPath(args map[string]string) error {
	path := strings.TrimSpace(args["search_path"])
	if path == "" {
		return fmt.Errorf("search_path is empty")
	}
	if strings.ContainsAny(path, shellMetacharacters) {
		return fmt.Errorf("search_path %q contains shell metacharacters", path)
	}
	if strings.HasPrefix(path, "-") {
		return fmt.Errorf("search_path %q must not start with '-'", path)
	}
	return nil
}

func expandHome(path, home string) string {
	path = strings.TrimSpace(path)
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
