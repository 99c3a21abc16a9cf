package analyze

import (
	"testing"

	"github.com/jward/pboindex/internal/store"
	"github.com/stretchr/testify/require"
)

func classWithMagazines(id, containerID string, magazines []string) *store.Class {
	props := store.NewProperties()
	items := make([]store.PropertyValue, len(magazines))
	for i, m := range magazines {
		items[i] = store.StringValue(m)
	}
	props.Set("magazines", store.ArrayValue(items))
	c := &store.Class{ID: id, Properties: props}
	if containerID != "" {
		c.ContainerID = &containerID
	}
	return c
}

func classWithMagazineWell(id, containerID string, wells []string) *store.Class {
	props := store.NewProperties()
	items := make([]store.PropertyValue, len(wells))
	for i, w := range wells {
		items[i] = store.StringValue(w)
	}
	props.Set("magazineWell", store.ArrayValue(items))
	c := &store.Class{ID: id, Properties: props}
	if containerID != "" {
		c.ContainerID = &containerID
	}
	return c
}

func bareClass(id, containerID string) *store.Class {
	c := &store.Class{ID: id, Properties: store.NewProperties()}
	if containerID != "" {
		c.ContainerID = &containerID
	}
	return c
}

func TestBuildMagazineWellCache_UnionsGroupMagazinesUnderWell(t *testing.T) {
	classes := []*store.Class{
		bareClass("CfgMagazineWells", ""),
		bareClass("CBA_556x45_STANAG", "CfgMagazineWells"),
		classWithMagazines("group1", "CBA_556x45_STANAG", []string{"30Rnd_556x45_Stanag", "30Rnd_556x45_Stanag_Tracer_Red"}),
		classWithMagazines("group2", "CBA_556x45_STANAG", []string{"20Rnd_556x45_Stanag"}),
	}

	cache := BuildMagazineWellCache(classes)
	mags := cache.Magazines("CBA_556x45_STANAG")
	require.Equal(t, []string{"20Rnd_556x45_Stanag", "30Rnd_556x45_Stanag", "30Rnd_556x45_Stanag_Tracer_Red"}, mags)
}

func TestResolveCompatibility_UnionsAcrossDeclaredWells(t *testing.T) {
	classes := []*store.Class{
		bareClass("CfgMagazineWells", ""),
		bareClass("WellA", "CfgMagazineWells"),
		bareClass("WellB", "CfgMagazineWells"),
		classWithMagazines("groupA", "WellA", []string{"Mag1"}),
		classWithMagazines("groupB", "WellB", []string{"Mag2", "Mag1"}),
	}
	cache := BuildMagazineWellCache(classes)

	weapon := &WeaponInfo{Name: "arifle_Test_F", MagazineWells: []string{"WellA", "WellB"}}
	ResolveCompatibility([]*WeaponInfo{weapon}, cache)

	require.Equal(t, []string{"Mag1", "Mag2"}, weapon.CompatibleMagazines)
}

func TestWeaponsFromClasses_ExtractsMagazineWellDeclaringWeapons(t *testing.T) {
	classes := []*store.Class{
		bareClass("CfgWeapons", ""),
		classWithMagazineWell("arifle_MX_F", "CfgWeapons", []string{"CBA_556x45_STANAG"}),
		bareClass("NotAWeapon", "CfgWeapons"),
	}

	weapons := WeaponsFromClasses(classes)
	require.Len(t, weapons, 1)
	require.Equal(t, "arifle_MX_F", weapons[0].Name)
	require.Equal(t, []string{"CBA_556x45_STANAG"}, weapons[0].MagazineWells)
}

func TestStats_ReportsMostPopularWellUsage(t *testing.T) {
	classes := []*store.Class{
		bareClass("CfgMagazineWells", ""),
		bareClass("WellA", "CfgMagazineWells"),
		classWithMagazines("groupA", "WellA", []string{"Mag1"}),
	}
	cache := BuildMagazineWellCache(classes)

	weapons := []*WeaponInfo{
		{Name: "W1", MagazineWells: []string{"WellA"}},
		{Name: "W2", MagazineWells: []string{"WellA"}},
	}
	stats := Stats(weapons, cache)
	require.Equal(t, 2, stats.TotalWeapons)
	require.Equal(t, 1, stats.TotalMagazineWells)
	require.Equal(t, 2, stats.MostPopularWellUsage)
}
