package stage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/stage"
)

// trimStage builds a finalized stage "trim" with an int parameter Q
// defaulting to 5.
func trimStage(t *testing.T) *stage.Stage {
	t.Helper()
	st := stage.NewStage("trim", "")
	p, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", 5, nil)
	require.NoError(t, err)
	require.NoError(t, st.AddParam(p))
	require.NoError(t, st.Finalize())
	return st
}

func TestStage_Match(t *testing.T) {
	st := trimStage(t)

	require.True(t, st.Match("trim"))
	require.True(t, st.Match("trimQ10"))
	require.False(t, st.Match("trimX"))
	require.False(t, st.Match("trimQ"))
	require.False(t, st.Match("map"))
}

func TestStage_Parse(t *testing.T) {
	st := trimStage(t)

	values, ok := st.Parse("trimQ10")
	require.True(t, ok)
	require.Equal(t, 10, values["qual"])

	values, ok = st.Parse("trim")
	require.True(t, ok)
	require.Equal(t, 5, values["qual"])

	_, ok = st.Parse("other")
	require.False(t, ok)
}

func TestStage_AltName(t *testing.T) {
	st := stage.NewStage("correct_reads", "dust")
	require.NoError(t, st.Finalize())

	require.True(t, st.Match("correct_reads"))
	require.True(t, st.Match("dust"))
	require.False(t, st.Match("dusty"))
}

func TestStage_Finalize(t *testing.T) {
	t.Run("double finalize rejected", func(t *testing.T) {
		st := stage.NewStage("trim", "")
		require.NoError(t, st.Finalize())
		require.Error(t, st.Finalize())
	})

	t.Run("params immutable after finalize", func(t *testing.T) {
		st := trimStage(t)
		p, err := stage.NewParam("trim", stage.ParamFlag, "N", "mode", "x", nil, nil)
		require.NoError(t, err)
		require.Error(t, st.AddParam(p))
	})

	t.Run("match before finalize panics", func(t *testing.T) {
		st := stage.NewStage("trim", "")
		require.Panics(t, func() { st.Match("trim") })
	})
}

func TestStage_AddParam(t *testing.T) {
	st := stage.NewStage("trim", "")
	p1, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", 5, nil)
	require.NoError(t, err)
	require.NoError(t, st.AddParam(p1))

	t.Run("duplicate key", func(t *testing.T) {
		p, err := stage.NewParam("trim", stage.ParamInt, "Q", "other", "", 1, nil)
		require.NoError(t, err)
		require.Error(t, st.AddParam(p))
	})

	t.Run("duplicate name", func(t *testing.T) {
		p, err := stage.NewParam("trim", stage.ParamInt, "L", "qual", "", 1, nil)
		require.NoError(t, err)
		require.Error(t, st.AddParam(p))
	})
}

func TestStage_Wildcards(t *testing.T) {
	st := trimStage(t)
	require.Equal(t, "{_sw_dir}trim{_sp_qual}", st.Wildcards("trim"))

	wc := map[string]string{
		stage.DirWildcard: "proj.",
		"_sp_qual":        "Q20",
	}
	require.Equal(t, "proj.trimQ20", st.WCPath(wc))
}

func TestStage_RequireOverridesInputs(t *testing.T) {
	st := stage.NewStage("assemble", "")
	st.Require(map[string][][]string{
		"reads": {{"R1.fq.gz", "R2.fq.gz"}, {"fq.gz"}},
	})
	require.NoError(t, st.Finalize())

	inputs := st.Inputs()
	require.True(t, inputs["/{sample}.R1.fq.gz"])
	require.True(t, inputs["/{sample}.R2.fq.gz"])
	require.True(t, inputs["/{sample}.fq.gz"])
}
