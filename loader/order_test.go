package loader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func relationNames(rels []Relation) []string {
	names := make([]string, len(rels))
	for i, r := range rels {
		names[i] = r.Name
	}
	return names
}

func TestResolveOrder_DefaultRelations(t *testing.T) {
	order, err := ResolveOrder(DefaultRelations())
	require.NoError(t, err)
	require.Equal(t, []string{
		RelDepartment,
		RelMunicipality,
		RelMunicipalDeathCount,
		RelNationalDailySummary,
	}, relationNames(order))
}

func TestResolveOrder_ParentsBeforeChildren(t *testing.T) {
	order, err := ResolveOrder([]Relation{NationalDailySummary, MunicipalDeathCount, Municipality, Department})
	require.NoError(t, err)
	require.Equal(t, []string{
		RelNationalDailySummary,
		RelDepartment,
		RelMunicipality,
		RelMunicipalDeathCount,
	}, relationNames(order))
}

func TestResolveOrder_RejectsCycle(t *testing.T) {
	a := Relation{Name: "a", Table: "a", Columns: []string{"x"}, DependsOn: []string{"b"}}
	b := Relation{Name: "b", Table: "b", Columns: []string{"x"}, DependsOn: []string{"a"}}
	c := Relation{Name: "c", Table: "c", Columns: []string{"x"}}

	_, err := ResolveOrder([]Relation{a, b, c})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Contains(t, err.Error(), "circular dependency among relations a, b")
}

func TestResolveOrder_RejectsUnknownDependency(t *testing.T) {
	_, err := ResolveOrder([]Relation{Municipality})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Contains(t, err.Error(), `unknown relation "department"`)
}

func TestResolveOrder_RejectsDuplicates(t *testing.T) {
	_, err := ResolveOrder([]Relation{Department, Department})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}
