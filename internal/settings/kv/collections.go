// Package kv provides settings.Backend implementations: an in-memory store,
// TOML and YAML files, and SQLite.
package kv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/italics/internal/settings"
)

// collections is the data model shared by the map-based backends: full
// collection path -> property name -> value (string or bool).
type collections map[string]map[string]any

// cleanPath normalizes a collection path by dropping empty segments.
func cleanPath(path string) (string, error) {
	parts := strings.Split(path, settings.PathSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: %q", settings.ErrInvalidPath, path)
	}
	return strings.Join(out, settings.PathSeparator), nil
}

// ancestors returns path and each parent path, root first.
func ancestors(path string) []string {
	parts := strings.Split(path, settings.PathSeparator)
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], settings.PathSeparator))
	}
	return out
}

// isWithin reports whether path is root or one of its descendants.
func isWithin(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+settings.PathSeparator)
}

func (c collections) exists(path string) (bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	_, ok := c[p]
	return ok, nil
}

func (c collections) create(path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	for _, a := range ancestors(p) {
		if _, ok := c[a]; !ok {
			c[a] = make(map[string]any)
		}
	}
	return nil
}

func (c collections) delete(path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	for existing := range c {
		if isWithin(existing, p) {
			delete(c, existing)
		}
	}
	return nil
}

func (c collections) get(path, key string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	props, ok := c[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", settings.ErrCollectionNotFound, p)
	}
	v, ok := props[key]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", settings.ErrPropertyNotFound, key, p)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return fmt.Sprint(val), nil
	}
}

func (c collections) set(path, key string, value any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("kv: empty property name in %s", p)
	}
	props, ok := c[p]
	if !ok {
		return fmt.Errorf("%w: %s", settings.ErrCollectionNotFound, p)
	}
	props[key] = value
	return nil
}

func (c collections) properties(path string) (map[string]any, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	props, ok := c[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", settings.ErrCollectionNotFound, p)
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out, nil
}
