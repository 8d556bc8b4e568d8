package domain

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ResolveColor parses an X11 color name ("forest green", "ForestGreen", "grey50")
// or a "#rgb"/"#rrggbb" hex string.
func ResolveColor(name string) (colorful.Color, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if hex, ok := x11Colors[key]; ok {
		key = hex
	}
	c, err := colorful.Hex(key)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("unknown color %q", name)
	}
	return c, nil
}

// ColorHex returns the normalized hex form of a color, or the input if it cannot be resolved.
func ColorHex(name string) string {
	c, err := ResolveColor(name)
	if err != nil {
		return name
	}
	return c.Hex()
}
