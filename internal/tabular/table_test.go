package tabular_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/tabular"
)

// sampleTable builds the table used by most tests:
//
//	sample  subject  site
//	s1      alice    north
//	s2      alice    north
//	s3      bob      south
func sampleTable(t *testing.T) *tabular.Table {
	t.Helper()
	table, err := tabular.New("samples",
		[]string{"sample", "subject", "site"},
		[][]string{
			{"s1", "alice", "north"},
			{"s2", "alice", "north"},
			{"s3", "bob", "south"},
		})
	require.NoError(t, err)
	t.Cleanup(func() { table.Close() })
	return table
}

func TestNew(t *testing.T) {
	t.Run("no columns", func(t *testing.T) {
		_, err := tabular.New("empty", nil, nil)
		require.Error(t, err)
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := tabular.New("ragged", []string{"a", "b"}, [][]string{{"1"}})
		require.Error(t, err)
		require.Contains(t, err.Error(), "row has 1 cells, expected 2")
	})

	t.Run("basic accessors", func(t *testing.T) {
		table := sampleTable(t)
		require.Equal(t, "samples", table.Name())
		require.Equal(t, []string{"sample", "subject", "site"}, table.Columns())
		require.True(t, table.HasColumn("subject"))
		require.False(t, table.HasColumn("missing"))

		n, err := table.NRows()
		require.NoError(t, err)
		require.Equal(t, 3, n)
	})
}

func TestIdentifyingColumns(t *testing.T) {
	table := sampleTable(t)
	unique, err := table.IdentifyingColumns()
	require.NoError(t, err)
	require.Equal(t, []string{"sample"}, unique)
}

func TestDuplicateRows(t *testing.T) {
	table := sampleTable(t)
	dups, err := table.DuplicateRows("subject")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "alice"}, dups)
}

func TestDistinct(t *testing.T) {
	table := sampleTable(t)

	t.Run("unconstrained", func(t *testing.T) {
		tuples, err := table.Distinct([]string{"subject"}, nil, nil)
		require.NoError(t, err)
		require.ElementsMatch(t, [][]string{{"alice"}, {"bob"}}, tuples)
	})

	t.Run("constrained", func(t *testing.T) {
		tuples, err := table.Distinct([]string{"sample"}, []string{"subject"}, []string{"alice"})
		require.NoError(t, err)
		require.ElementsMatch(t, [][]string{{"s1"}, {"s2"}}, tuples)
	})

	t.Run("mismatched filter lengths", func(t *testing.T) {
		_, err := table.Distinct([]string{"sample"}, []string{"subject"}, nil)
		require.Error(t, err)
	})
}

func TestGroupByDedup(t *testing.T) {
	table := sampleTable(t)

	t.Run("redundant column dropped", func(t *testing.T) {
		// site is fully determined by subject.
		cols, err := table.GroupByDedup([]string{"subject", "site"})
		require.NoError(t, err)
		require.Equal(t, []string{"subject"}, cols)
	})

	t.Run("identifying column subsumes the rest", func(t *testing.T) {
		cols, err := table.GroupByDedup([]string{"sample", "subject", "site"})
		require.NoError(t, err)
		require.Equal(t, []string{"sample"}, cols)
	})

	t.Run("independent columns kept", func(t *testing.T) {
		other, err := tabular.New("grid",
			[]string{"a", "b"},
			[][]string{
				{"1", "x"}, {"1", "y"},
				{"2", "x"}, {"2", "y"},
			})
		require.NoError(t, err)
		defer other.Close()

		cols, err := other.GroupByDedup([]string{"a", "b"})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, cols)
	})
}

func TestFromCSV(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		table, err := tabular.FromCSV("csv", strings.NewReader("sample,unit\ns1,a\ns2,b\n"))
		require.NoError(t, err)
		defer table.Close()
		require.Equal(t, []string{"sample", "unit"}, table.Columns())

		n, err := table.NRows()
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})

	t.Run("tab separated", func(t *testing.T) {
		table, err := tabular.FromCSV("tsv", strings.NewReader("sample\tunit\ns1\ta\n"))
		require.NoError(t, err)
		defer table.Close()
		require.Equal(t, []string{"sample", "unit"}, table.Columns())
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := tabular.FromCSV("nil", strings.NewReader(""))
		require.Error(t, err)
	})
}
