package report

import (
	"fmt"
	"strings"
)

// MissingSections lists the entries of Sections that content never mentions.
// Matching is case-insensitive so "## Executive Summary" satisfies
// "EXECUTIVE SUMMARY".
func MissingSections(content string) []string {
	lower := strings.ToLower(content)
	missing := make([]string, 0, len(Sections))
	for _, section := range Sections {
		if !strings.Contains(lower, strings.ToLower(section)) {
			missing = append(missing, section)
		}
	}
	return missing
}

func ValidateRequiredSections(content string) error {
	missing := MissingSections(content)
	if len(missing) > 0 {
		return fmt.Errorf("report missing required sections: %s", strings.Join(missing, ", "))
	}
	return nil
}
