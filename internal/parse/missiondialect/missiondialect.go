// Package missiondialect implements the mission-binary dialect parser (C6
// in spec.md §4.6): walking a mission's decoded class tree and collecting
// inventory/loadout class references via configurable path-pattern queries.
package missiondialect

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jward/pboindex/internal/store"
)

// Extensions lists the file extensions this dialect claims.
func Extensions() []string { return []string{"sqm"} }

// CanParse reports whether path's extension belongs to this dialect.
func CanParse(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".sqm")
}

// Node is one class in the decoded mission tree.
type Node struct {
	Name       string
	Properties *store.Properties
	Children   []*Node
}

// QueryPattern is a path expression plus the property names to harvest
// when the expression matches the current path (spec.md §4.6). Path
// segments are separated by "/"; "*" matches any single segment; a
// leading "*" matches any depth (translated to doublestar's "**").
type QueryPattern struct {
	Path       string
	Properties []string
}

// TypeNameKey is the property key used to recover a nested class's
// identifying value (spec.md §4.6: "a configured key", default typeName).
const TypeNameKey = "typeName"

// DefaultPatterns covers inventory/loadout classes at unbounded depth
// (spec.md §4.6): uniform, vest, backpack, headgear, weapons and their
// muzzle magazines, and container cargo lists.
//
// Both encodings seen in mission trees are covered: a slot as a nested
// class carrying typeName/name (…/Inventory/uniform { typeName = "…"; })
// and a slot as a direct string property on a per-item wrapper node
// (…/Inventory/Item1/uniform = "…";), the latter with an item-wrapper
// segment between Inventory and the slot.
var DefaultPatterns = []QueryPattern{
	{Path: "*/Inventory/uniform", Properties: []string{"typeName"}},
	{Path: "*/Inventory/vest", Properties: []string{"typeName"}},
	{Path: "*/Inventory/backpack", Properties: []string{"typeName"}},
	{Path: "*/Inventory/headgear", Properties: []string{"typeName"}},
	{Path: "*/Inventory/primaryWeapon", Properties: []string{"name"}},
	{Path: "*/Inventory/primaryWeapon/muzzle", Properties: []string{"name"}},
	{Path: "*/Inventory/secondaryWeapon", Properties: []string{"name"}},
	{Path: "*/Inventory/secondaryWeapon/muzzle", Properties: []string{"name"}},
	{Path: "*/Inventory/handgunWeapon", Properties: []string{"name"}},
	{Path: "*/Inventory/handgunWeapon/muzzle", Properties: []string{"name"}},
	{Path: "*/Inventory/linkedItems/*", Properties: []string{"typeName"}},
	{Path: "*/Container/*/items/*", Properties: []string{"typeName"}},

	{Path: "*/Inventory/*", Properties: []string{"uniform", "vest", "backpack", "headgear", "goggles"}},
	{Path: "*/Inventory/*/primaryWeapon", Properties: []string{"name"}},
	{Path: "*/Inventory/*/primaryWeapon/muzzle", Properties: []string{"name"}},
	{Path: "*/Inventory/*/secondaryWeapon", Properties: []string{"name"}},
	{Path: "*/Inventory/*/secondaryWeapon/muzzle", Properties: []string{"name"}},
	{Path: "*/Inventory/*/handgunWeapon", Properties: []string{"name"}},
	{Path: "*/Inventory/*/handgunWeapon/muzzle", Properties: []string{"name"}},
}

func globFor(pattern string) string {
	if strings.HasPrefix(pattern, "*/") {
		return "**/" + strings.TrimPrefix(pattern, "*/")
	}
	return pattern
}

// Walk applies patterns to every path in root's tree and returns the set of
// referenced class names (spec.md §4.6's "output is a set of class-name
// strings").
func Walk(root *Node, patterns []QueryPattern) []string {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	globs := make([]string, len(patterns))
	for i, p := range patterns {
		globs[i] = globFor(p.Path)
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		name = strings.Trim(name, `"`)
		if name == "" {
			return
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}

	var visit func(node *Node, pathSegs []string)
	visit = func(node *Node, pathSegs []string) {
		full := strings.Join(pathSegs, "/")
		for i, g := range globs {
			ok, err := doublestar.Match(g, full)
			if err != nil || !ok {
				continue
			}
			for _, propName := range patterns[i].Properties {
				harvest(node, propName, add)
			}
		}
		for _, child := range node.Children {
			visit(child, append(pathSegs, child.Name))
		}
	}
	visit(root, []string{root.Name})
	return out
}

// harvest resolves a property value into zero or more class-name
// contributions (spec.md §4.6: string arrays contribute each element;
// nested classes with a typeName-like key contribute that key's value).
func harvest(node *Node, propName string, add func(string)) {
	v, ok := node.Properties.Get(propName)
	if !ok {
		return
	}
	switch v.Kind {
	case store.PropString:
		add(v.Str)
	case store.PropClassRef:
		add(v.Ref)
	case store.PropArray:
		for _, item := range v.Arr {
			if item.Kind == store.PropString {
				add(item.Str)
			}
		}
	case store.PropObject:
		if tn, ok := item0(v.Obj, TypeNameKey); ok && tn.Kind == store.PropString {
			add(tn.Str)
		}
	}
}

func item0(m map[string]store.PropertyValue, key string) (store.PropertyValue, bool) {
	v, ok := m[key]
	return v, ok
}
