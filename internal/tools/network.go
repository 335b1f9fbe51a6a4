package tools

func networkTools() []Tool {
	return []Tool{
		{
			Name:        "get_network_connections",
			Category:    CategoryNetwork,
			Description: "List established network connections and listening ports.",
			run: func(c call) string {
				return output(c.sh("netstat -an | grep -E '(ESTABLISHED|LISTEN)' | head -50"))
			},
		},
		{
			Name:        "get_network_interfaces",
			Category:    CategoryNetwork,
			Description: "Get network interface configuration with IP addresses.",
			run: func(c call) string {
				return output(c.sh("ifconfig | grep -E '(^[a-z]|inet )' | head -30"))
			},
		},
	}
}
