package prefs

import (
	"context"
	"fmt"
	"strings"
)

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark" in any case.
func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("theme must be %q or %q, got %q", ThemeLight, ThemeDark, value)
	}
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// LoadTheme reads the stored theme. Missing or unrecognised values resolve to light.
func LoadTheme(ctx context.Context, store Store) (Theme, error) {
	value, ok, err := store.Get(ctx, KeyTheme)
	if err != nil {
		return ThemeLight, err
	}
	if !ok {
		return ThemeLight, nil
	}
	theme, err := ParseTheme(value)
	if err != nil {
		return ThemeLight, nil
	}
	return theme, nil
}

// SaveTheme persists theme.
func SaveTheme(ctx context.Context, store Store, theme Theme) error {
	return store.Set(ctx, KeyTheme, string(theme))
}

// ToggleTheme flips the stored theme and returns the new value.
func ToggleTheme(ctx context.Context, store Store) (Theme, error) {
	current, err := LoadTheme(ctx, store)
	if err != nil {
		return current, err
	}
	next := current.Opposite()
	if err := SaveTheme(ctx, store, next); err != nil {
		return current, err
	}
	return next, nil
}
