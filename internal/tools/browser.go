package tools

import "strings"

// Paths are relative to the home directory.
var browserPaths = []struct{ name, path string }{
	{"Chrome", "Library/Application Support/Google/Chrome"},
	{"Firefox", "Library/Application Support/Firefox"},
	{"Safari", "Library/Safari"},
	{"Edge", "Library/Application Support/Microsoft Edge"},
	{"Brave", "Library/Application Support/BraveSoftware/Brave-Browser"},
}

func browserTools() []Tool {
	return []Tool{
		{
			Name:        "find_browser_data",
			Category:    CategoryBrowser,
			Description: "Locate browser data directories (Chrome, Firefox, Safari, Edge, Brave). They hold saved passwords, cookies, and session tokens.",
			run: func(c call) string {
				parts := []string{}
				for _, entry := range browserPaths {
					result := c.sh(`ls -la "$HOME/` + entry.path + `" 2>/dev/null | head -10`)
					if interrupted(result) || strings.TrimSpace(result.Stdout) != "" {
						parts = append(parts, section(entry.name, detail(result)))
					}
				}
				if len(parts) == 0 {
					return "No browser data found"
				}
				return joinLines(parts)
			},
		},
	}
}
