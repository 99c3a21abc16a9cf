package configdialect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_ForwardDeclaration(t *testing.T) {
	res, err := Parse(`class Weapon_Base;`, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, res.Classes, 1)
	require.True(t, res.Classes[0].IsForwardDeclaration)
	require.Equal(t, "Weapon_Base", res.Classes[0].ID)
}

func TestParse_InheritanceAndProperties(t *testing.T) {
	src := `
class arifle_MX_F : Rifle_Base_F {
	scope = 2;
	displayName = "MX 6.5 mm";
	magazines[] = {"30Rnd_65x39_caseless_mag", "100Rnd_65x39_Cased_Box"};
};
`
	res, err := Parse(src, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, res.Classes, 1)

	c := res.Classes[0]
	require.Equal(t, "arifle_MX_F", c.ID)
	require.Equal(t, "Rifle_Base_F", *c.ParentID)
	require.False(t, c.IsForwardDeclaration)

	scope, ok := c.Properties.Get("scope")
	require.True(t, ok)
	require.Equal(t, 2.0, scope.Num)

	mags, ok := c.Properties.Get("magazines")
	require.True(t, ok)
	require.Len(t, mags.Arr, 2)
	require.Equal(t, "30Rnd_65x39_caseless_mag", mags.Arr[0].Str)
}

func TestParse_NestedClassEmitsTwoRecords(t *testing.T) {
	src := `
class Outer {
	class Inner {
		value = 1;
	};
};
`
	res, err := Parse(src, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, res.Classes, 2)

	var outer, inner *ClassRecord
	for i := range res.Classes {
		switch res.Classes[i].ID {
		case "Outer":
			outer = &res.Classes[i]
		case "Inner":
			inner = &res.Classes[i]
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, inner)
	require.Equal(t, "Outer", *inner.ContainerID)

	nestedProp, ok := outer.Properties.Get("Inner")
	require.True(t, ok)
	require.Equal(t, "object", string(nestedProp.Kind))
}

func TestParse_SimpleModeOmitsProperties(t *testing.T) {
	src := `class Child : Parent { scope = 2; };`
	res, err := Parse(src, ModeSimple)
	require.NoError(t, err)
	require.Len(t, res.Classes, 1)
	require.Equal(t, "Parent", *res.Classes[0].ParentID)
	require.Equal(t, 0, res.Classes[0].Properties.Len())
}

func TestParse_RecoversAfterSyntaxError(t *testing.T) {
	src := `
class Broken {
	scope scope;
};
class Good : Base {
	scope = 1;
};
`
	res, err := Parse(src, ModeAdvanced)
	require.NoError(t, err)

	var names []string
	for _, c := range res.Classes {
		names = append(names, c.ID)
	}
	require.Contains(t, names, "Good")
	require.NotEmpty(t, res.Warnings)
}

func TestParse_StripsCommentsAndIncludes(t *testing.T) {
	src := `
#include "basic.hpp"
// a comment
class A {
	/* block comment */
	scope = 2;
};
`
	res, err := Parse(src, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, res.Classes, 1)
	require.Equal(t, "A", res.Classes[0].ID)
}
