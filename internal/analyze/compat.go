package analyze

import (
	"sort"

	"github.com/jward/pboindex/internal/store"
)

// WeaponInfo is a weapon class's magazine-compatibility inputs and
// resolved output (supplemented feature, grounded in the original weapon
// scanner's compatibility resolver: a weapon declares the magazine wells
// it accepts, and compatibility is the union of each well's magazines).
type WeaponInfo struct {
	Name            string
	MagazineWells   []string
	CompatibleMagazines []string
}

// MagazineWellCache maps a magazine well's name to the magazine class
// names it accepts, pre-computed once so resolving many weapons does not
// re-walk the class tree per weapon.
type MagazineWellCache struct {
	wellMagazines map[string][]string
}

// BuildMagazineWellCache collects every magazine well's accepted magazines
// from its nested group classes. CfgMagazineWells entries are modelled as:
// a well class containing one or more nested group classes, each carrying
// a "magazines" array property (spec.md §3's Object/Array PropertyValue
// shapes, produced by the config dialect for nested class declarations).
func BuildMagazineWellCache(classes []*store.Class) *MagazineWellCache {
	byID := make(map[string]*store.Class, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
	}

	cache := &MagazineWellCache{wellMagazines: make(map[string][]string)}
	for _, c := range classes {
		if c.ContainerID == nil {
			continue
		}
		parent, ok := byID[*c.ContainerID]
		if !ok || parent.ContainerID == nil {
			continue
		}
		// c is a group nested two levels deep: CfgMagazineWells/<Well>/<Group>.
		grandparent, ok := byID[*parent.ContainerID]
		if !ok || grandparent.ID != "CfgMagazineWells" {
			continue
		}
		well := parent.ID
		if v, ok := c.Properties.Get("magazines"); ok && v.Kind == store.PropArray {
			for _, item := range v.Arr {
				if item.Kind == store.PropString {
					cache.wellMagazines[well] = append(cache.wellMagazines[well], item.Str)
				}
			}
		}
	}
	for well := range cache.wellMagazines {
		sort.Strings(cache.wellMagazines[well])
	}
	return cache
}

// Magazines returns the magazines accepted by wellName, or nil.
func (c *MagazineWellCache) Magazines(wellName string) []string {
	return c.wellMagazines[wellName]
}

// ResolveCompatibility fills CompatibleMagazines for every weapon, using
// the pre-built well cache (grounded in compatibility_resolver.rs's
// resolve_compatibility: union each declared well's magazines, dedupe,
// sort).
func ResolveCompatibility(weapons []*WeaponInfo, cache *MagazineWellCache) {
	for _, weapon := range weapons {
		seen := make(map[string]struct{})
		for _, well := range weapon.MagazineWells {
			for _, mag := range cache.Magazines(well) {
				seen[mag] = struct{}{}
			}
		}
		out := make([]string, 0, len(seen))
		for mag := range seen {
			out = append(out, mag)
		}
		sort.Strings(out)
		weapon.CompatibleMagazines = out
	}
}

// WeaponsFromClasses extracts WeaponInfo records from CfgWeapons classes
// that declare a "magazineWell" array property.
func WeaponsFromClasses(classes []*store.Class) []*WeaponInfo {
	byID := make(map[string]*store.Class, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
	}

	var weapons []*WeaponInfo
	for _, c := range classes {
		if c.ContainerID == nil || *c.ContainerID != "CfgWeapons" {
			continue
		}
		v, ok := c.Properties.Get("magazineWell")
		if !ok || v.Kind != store.PropArray {
			continue
		}
		w := &WeaponInfo{Name: c.ID}
		for _, item := range v.Arr {
			if item.Kind == store.PropString {
				w.MagazineWells = append(w.MagazineWells, item.Str)
			}
		}
		weapons = append(weapons, w)
	}
	sort.Slice(weapons, func(i, j int) bool { return weapons[i].Name < weapons[j].Name })
	return weapons
}

// CacheStats summarises magazine-well usage across a weapon set (mirrors
// the original resolver's get_stats diagnostic).
type CacheStats struct {
	TotalWeapons         int
	TotalMagazineWells   int
	MostUsedWells        int
	MostPopularWellUsage int
}

// Stats computes usage statistics for a resolved weapon set.
func Stats(weapons []*WeaponInfo, cache *MagazineWellCache) CacheStats {
	usage := make(map[string]int)
	maxUsage := 0
	for _, w := range weapons {
		for _, well := range w.MagazineWells {
			usage[well]++
			if usage[well] > maxUsage {
				maxUsage = usage[well]
			}
		}
	}
	return CacheStats{
		TotalWeapons:         len(weapons),
		TotalMagazineWells:   len(cache.wellMagazines),
		MostUsedWells:        len(usage),
		MostPopularWellUsage: maxUsage,
	}
}
