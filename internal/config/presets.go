package config

import "sort"

// Presets are the built-in Gmail search queries selectable with --preset.
var Presets = map[string]string{
	"unsubscribe":      "unsubscribe",
	"newsletter":       "newsletter",
	"promotional":      "promotional",
	"list-unsubscribe": "list-unsubscribe",
}

// PresetNames returns the preset keys in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for k := range Presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
