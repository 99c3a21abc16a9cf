package scriptdialect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract_RecognisedVerbProducesReference(t *testing.T) {
	refs := Extract(`_unit addWeapon "arifle_MX_F";`, Options{Verbs: []string{"addWeapon"}})
	require.Len(t, refs, 1)
	require.Equal(t, "arifle_MX_F", refs[0].ClassName)
	require.Equal(t, "addWeapon", refs[0].Verb)
	require.Equal(t, 1, refs[0].Line)
}

func TestExtract_FilteredVerbProducesNoReference(t *testing.T) {
	refs := Extract(`player addItem "FirstAidKit";`, Options{Verbs: []string{"addWeapon"}})
	require.Empty(t, refs)
}

func TestExtract_ArrayArgumentEmitsEachLiteral(t *testing.T) {
	refs := Extract(`_unit addMagazines ["30Rnd_65x39_caseless_mag", "HandGrenade"];`, Options{Verbs: []string{"addMagazines"}})
	require.Len(t, refs, 2)
	require.Equal(t, "30Rnd_65x39_caseless_mag", refs[0].ClassName)
	require.Equal(t, "HandGrenade", refs[1].ClassName)
}

func TestExtract_IgnoresCommentedCalls(t *testing.T) {
	refs := Extract(`// _unit addWeapon "arifle_MX_F";`, Options{Verbs: []string{"addWeapon"}})
	require.Empty(t, refs)
}

func TestExtract_AllLiteralsModeIgnoresVerbFilter(t *testing.T) {
	refs := Extract(`hint "not a verb call";`, Options{AllLiterals: true})
	require.Len(t, refs, 1)
	require.Empty(t, refs[0].Verb)
}

func TestExtract_DecodesEscapeSequences(t *testing.T) {
	refs := Extract(`hint "Line1\nLine2"; _unit addBackpack "B_Carryall_cbr";`, Options{AllLiterals: true})
	require.Len(t, refs, 2)
	require.Equal(t, "Line1\nLine2", refs[0].ClassName)
}
