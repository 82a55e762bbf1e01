package stage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/stage"
)

func TestNewPipeline(t *testing.T) {
	t.Run("no members", func(t *testing.T) {
		_, err := stage.NewPipeline("assembly", nil, nil, false)
		require.Error(t, err)
	})

	t.Run("empty member name", func(t *testing.T) {
		_, err := stage.NewPipeline("assembly",
			[]stage.PipelineMember{{Name: ""}}, nil, false)
		require.Error(t, err)
	})
}

func TestPipeline_Match(t *testing.T) {
	p, err := stage.NewParam("assembly", stage.ParamInt, "L", "length", "", 20, nil)
	require.NoError(t, err)
	pipe, err := stage.NewPipeline("assembly",
		[]stage.PipelineMember{{Name: "trim"}, {Name: "assemble"}},
		[]*stage.Param{p}, false)
	require.NoError(t, err)

	require.True(t, pipe.Match("assembly"))
	require.True(t, pipe.Match("assemblyL30"))
	require.False(t, pipe.Match("assemblyX"))

	values, ok := pipe.Parse("assemblyL30")
	require.True(t, ok)
	require.Equal(t, 30, values["length"])

	values, ok = pipe.Parse("assembly")
	require.True(t, ok)
	require.Equal(t, 20, values["length"])
}

func addPipeline(t *testing.T, reg *stage.Registry, name string, members []stage.PipelineMember, hide bool) *stage.Pipeline {
	t.Helper()
	pipe, err := stage.NewPipeline(name, members, nil, hide)
	require.NoError(t, err)
	require.NoError(t, reg.AddPipeline(pipe))
	return pipe
}

func TestPipeline_Outputs(t *testing.T) {
	t.Run("first member introducing a type wins", func(t *testing.T) {
		reg := readsRegistry(t)
		pipe := addPipeline(t, reg, "assembly",
			[]stage.PipelineMember{{Name: "trim"}, {Name: "assemble"}}, false)

		outputs := pipe.Outputs()
		require.Equal(t, ".trim", outputs["/{sample}.R1.fq.gz"])
		require.Equal(t, ".trim", outputs["/{sample}.R2.fq.gz"])
		require.Equal(t, ".trim.assemble", outputs["/{sample}.contigs.fasta"])
	})

	t.Run("hidden member shapes the path but exposes nothing", func(t *testing.T) {
		reg := readsRegistry(t)
		pipe := addPipeline(t, reg, "assembly",
			[]stage.PipelineMember{{Name: "trim", Hide: true}, {Name: "assemble"}}, false)

		outputs := pipe.Outputs()
		require.NotContains(t, outputs, "/{sample}.R1.fq.gz")
		require.Equal(t, ".trim.assemble", outputs["/{sample}.contigs.fasta"])
	})

	t.Run("hide on the pipeline hides everything", func(t *testing.T) {
		reg := readsRegistry(t)
		pipe := addPipeline(t, reg, "assembly",
			[]stage.PipelineMember{{Name: "trim"}, {Name: "assemble"}}, true)
		require.Empty(t, pipe.Outputs())
	})
}

func TestPipeline_Inputs(t *testing.T) {
	reg := readsRegistry(t)
	pipe := addPipeline(t, reg, "assembly",
		[]stage.PipelineMember{{Name: "trim"}, {Name: "assemble"}}, false)

	inputs := pipe.Inputs()
	require.True(t, inputs["/{sample}.R1.fq.gz"])
	require.True(t, inputs["/{sample}.R2.fq.gz"])
}

func TestPipeline_InStack(t *testing.T) {
	reg := readsRegistry(t)
	addPipeline(t, reg, "assembly",
		[]stage.PipelineMember{{Name: "trim"}, {Name: "assemble"}}, false)

	t.Run("path expands to the member sequence", func(t *testing.T) {
		stack, err := reg.Stack("proj.assembly")
		require.NoError(t, err)
		require.Equal(t, "proj.trim.assemble", stack.Dir())
		require.Equal(t, []string{"sample"}, stack.Group)
	})

	t.Run("downstream inputs redirect past the pipeline", func(t *testing.T) {
		stack, err := reg.Stack("proj.assembly.bin")
		require.NoError(t, err)
		require.Equal(t, "proj.trim.assemble",
			stack.Prevs["/{sample}.contigs.fasta"].Path)
	})
}

func TestPipeline_UnknownMember(t *testing.T) {
	reg := readsRegistry(t)
	addPipeline(t, reg, "assembly",
		[]stage.PipelineMember{{Name: "trim"}, {Name: "assmeble"}}, false)

	_, err := reg.Stack("proj.assembly")
	require.Error(t, err)
	require.Contains(t, err.Error(), "pipeline 'assembly'")
	require.Contains(t, err.Error(), "unknown stage 'assmeble'")
}
