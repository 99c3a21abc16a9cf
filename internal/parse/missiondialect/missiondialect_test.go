package missiondialect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTreeAndWalk_RecoversInventoryReferences(t *testing.T) {
	src := `
class Mission {
	class Entities {
		class Item0 {
			class Attributes {
				class Inventory {
					class uniform {
						typeName = "U_B_CombatUniform_mcam";
					};
					class primaryWeapon {
						name = "arifle_MX_F";
					};
				};
			};
		};
	};
};
`
	tree, err := ParseTree(src)
	require.NoError(t, err)

	refs := Walk(tree, DefaultPatterns)
	require.ElementsMatch(t, []string{"U_B_CombatUniform_mcam", "arifle_MX_F"}, refs)
}

func TestWalk_LinkedItemsChildClassesContributeEachTypeName(t *testing.T) {
	src := `
class Mission {
	class Entities {
		class Item0 {
			class Attributes {
				class Inventory {
					class linkedItems {
						class Item0 {
							typeName = "ItemMap";
						};
						class Item1 {
							typeName = "ItemCompass";
						};
					};
				};
			};
		};
	};
};
`
	tree, err := ParseTree(src)
	require.NoError(t, err)
	refs := Walk(tree, DefaultPatterns)
	require.ElementsMatch(t, []string{"ItemMap", "ItemCompass"}, refs)
}

func TestWalk_RecoversDirectPropertyEncodingWithItemWrapper(t *testing.T) {
	src := `
class Mission {
	class Entities {
		class Item0 {
			class Attributes {
				class Inventory {
					class Item1 {
						uniform = "U_B_CombatUniform_mcam";
						class primaryWeapon {
							name = "arifle_MX_F";
						};
					};
				};
			};
		};
	};
};
`
	tree, err := ParseTree(src)
	require.NoError(t, err)

	refs := Walk(tree, DefaultPatterns)
	require.ElementsMatch(t, []string{"U_B_CombatUniform_mcam", "arifle_MX_F"}, refs)
}

func TestWalk_DeduplicatesRepeatedClassNames(t *testing.T) {
	src := `
class Mission {
	class Entities {
		class Item0 {
			class Attributes { class Inventory { class uniform { typeName = "U_B_CombatUniform_mcam"; }; }; };
		};
		class Item1 {
			class Attributes { class Inventory { class uniform { typeName = "U_B_CombatUniform_mcam"; }; }; };
		};
	};
};
`
	tree, err := ParseTree(src)
	require.NoError(t, err)
	refs := Walk(tree, DefaultPatterns)
	require.Equal(t, []string{"U_B_CombatUniform_mcam"}, refs)
}
