package stage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/stage"
	"github.com/vk/stagewalk/internal/tabular"
)

func projectTable(t *testing.T) *tabular.Table {
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

func TestNewProject(t *testing.T) {
	t.Run("leftmost unique column chosen", func(t *testing.T) {
		p, err := stage.NewProject("proj", projectTable(t), "", nil)
		require.NoError(t, err)
		require.Equal(t, "sample", p.IDCol())
	})

	t.Run("explicit id column", func(t *testing.T) {
		p, err := stage.NewProject("proj", projectTable(t), "sample", nil)
		require.NoError(t, err)
		require.Equal(t, "sample", p.IDCol())
	})

	t.Run("unknown id column", func(t *testing.T) {
		_, err := stage.NewProject("proj", projectTable(t), "nothere", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not found in data")
	})

	t.Run("non-unique id column", func(t *testing.T) {
		_, err := stage.NewProject("proj", projectTable(t), "subject", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not unique")
		require.Contains(t, err.Error(), "alice")
	})

	t.Run("no unique column at all", func(t *testing.T) {
		table, err := tabular.New("dups", []string{"a"}, [][]string{{"x"}, {"x"}})
		require.NoError(t, err)
		defer table.Close()

		_, err = stage.NewProject("proj", table, "", nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no column with unique values")
	})
}

func TestProject_Outputs(t *testing.T) {
	t.Run("defaults to paired reads", func(t *testing.T) {
		p, err := stage.NewProject("proj", projectTable(t), "", nil)
		require.NoError(t, err)

		outputs := p.Outputs()
		require.Contains(t, outputs, "/{sample}.R1.fq.gz")
		require.Contains(t, outputs, "/{sample}.R2.fq.gz")
	})

	t.Run("override", func(t *testing.T) {
		p, err := stage.NewProject("proj", projectTable(t), "",
			[]string{"/{sample}.bam"})
		require.NoError(t, err)
		require.Equal(t, map[string]string{"/{sample}.bam": ""}, p.Outputs())
	})
}

func TestProject_MinimizeVariables(t *testing.T) {
	p, err := stage.NewProject("proj", projectTable(t), "", nil)
	require.NoError(t, err)

	t.Run("redundant column dropped", func(t *testing.T) {
		minimal, other, err := p.MinimizeVariables([]string{"subject", "site"})
		require.NoError(t, err)
		require.Equal(t, []string{"subject"}, minimal)
		require.Empty(t, other)
	})

	t.Run("identifying column wins", func(t *testing.T) {
		minimal, _, err := p.MinimizeVariables([]string{"sample", "subject"})
		require.NoError(t, err)
		require.Equal(t, []string{"sample"}, minimal)
	})

	t.Run("non-table names pass through", func(t *testing.T) {
		minimal, other, err := p.MinimizeVariables([]string{"subject", "barcode"})
		require.NoError(t, err)
		require.Equal(t, []string{"subject"}, minimal)
		require.Equal(t, []string{"barcode"}, other)
	})

	t.Run("single column short-circuits", func(t *testing.T) {
		minimal, other, err := p.MinimizeVariables([]string{"subject"})
		require.NoError(t, err)
		require.Equal(t, []string{"subject"}, minimal)
		require.Empty(t, other)
	})
}

func TestProject_GetIDs(t *testing.T) {
	p, err := stage.NewProject("proj", projectTable(t), "", nil)
	require.NoError(t, err)

	t.Run("empty grouping yields ALL", func(t *testing.T) {
		ids, err := p.GetIDs(nil, nil, "")
		require.NoError(t, err)
		require.Equal(t, []string{"ALL"}, ids)
	})

	t.Run("per-sample ids", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"sample"}, nil, "")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"s1", "s2", "s3"}, ids)
	})

	t.Run("per-subject ids", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"subject"}, nil, "")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"alice", "bob"}, ids)
	})

	t.Run("ALL match value clears the filter", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"subject"}, nil, "ALL")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"alice", "bob"}, ids)
	})

	t.Run("identical groupings pass the value through", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"subject"}, []string{"subject"}, "alice")
		require.NoError(t, err)
		require.Equal(t, []string{"alice"}, ids)
	})

	t.Run("translated between groupings", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"sample"}, []string{"subject"}, "alice")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"s1", "s2"}, ids)
	})

	t.Run("non-table match columns are ignored", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"sample"}, []string{"barcode", "subject"}, "x__bob")
		require.NoError(t, err)
		require.Equal(t, []string{"s3"}, ids)
	})

	t.Run("tuple ids join with a double underscore", func(t *testing.T) {
		ids, err := p.GetIDs([]string{"subject", "site"}, nil, "")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"alice__north", "bob__south"}, ids)
	})
}
