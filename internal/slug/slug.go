// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from category names.
package slug

import (
	"regexp"
	"strings"
)

var (
	// disallowed matches anything outside word characters, whitespace,
	// and hyphens.
	disallowed = regexp.MustCompile(`[^\w\s-]`)
	// whitespaceRun matches one or more consecutive whitespace characters.
	whitespaceRun = regexp.MustCompile(`\s+`)
	// hyphenRun collapses consecutive hyphens into one.
	hyphenRun = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Battle Gear & Parts!" → "battle-gear-parts"
// An empty or fully stripped input yields the empty string; callers that
// require a non-empty slug must validate separately.
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = disallowed.ReplaceAllString(result, "")
	result = whitespaceRun.ReplaceAllString(result, "-")
	result = hyphenRun.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}
