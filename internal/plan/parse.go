// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"strings"
)

// Parsed is the structured form of a model answer.
type Parsed struct {
	Recipes []string
	Titles  []string
}

// Parse splits a model answer into recipes and the trailing title line.
// Recipes are separated by lines made only of 50 or more dashes. When the last
// non-blank line contains commas it is taken as the title list and removed
// from the last recipe.
func Parse(text string) Parsed {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var titles []string
	if i := lastNonBlank(lines); i >= 0 && strings.Contains(lines[i], ",") && !isSeparator(lines[i]) {
		titles = splitTitles(lines[i])
		lines = lines[:i]
	}

	var (
		recipes []string
		current []string
	)
	flush := func() {
		if r := strings.TrimSpace(strings.Join(current, "\n")); r != "" {
			recipes = append(recipes, r)
		}
		current = current[:0]
	}
	for _, line := range lines {
		if isSeparator(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return Parsed{Recipes: recipes, Titles: titles}
}

func isSeparator(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= len(RecipeSeparator) && strings.Trim(line, "-") == ""
}

func lastNonBlank(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

func splitTitles(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), `'"`)
	var titles []string
	for _, t := range strings.Split(line, ",") {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}
