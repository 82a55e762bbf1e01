package expand_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/expand"
	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
	"github.com/vk/stagewalk/internal/tabular"
)

// trimScope builds a registry with one project and an open definition scope
// for a stage "trim" with an int parameter Q.
func trimScope(t *testing.T) (*stage.Registry, *stage.Stage) {
	t.Helper()
	reg := stage.NewRegistry()

	table, err := tabular.New("samples",
		[]string{"sample"}, [][]string{{"s1"}, {"s2"}})
	require.NoError(t, err)
	t.Cleanup(func() { table.Close() })

	project, err := stage.NewProject("proj", table, "", nil)
	require.NoError(t, err)
	require.NoError(t, reg.AddProject(project))

	st := stage.NewStage("trim", "")
	st.Source = "stages/trim.hcl:1"
	p, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", 5, nil)
	require.NoError(t, err)
	require.NoError(t, st.AddParam(p))
	require.NoError(t, reg.RegisterStage(st))

	scope, err := reg.BeginStage(st)
	require.NoError(t, err)
	t.Cleanup(func() { reg.EndStage(scope) })
	return reg, st
}

func TestContextExpander_NoScope(t *testing.T) {
	reg := stage.NewRegistry()
	rule := &model.Rule{
		Name:  "plain",
		Input: &model.ArgsTuple{Pos: []any{"{:prev:}/{sample}.fq.gz"}},
	}
	require.NoError(t, expand.NewContextExpander(reg).Expand(context.Background(), rule))
	require.Equal(t, "{:prev:}/{sample}.fq.gz", rule.Input.Pos[0])
}

func TestContextExpander_This(t *testing.T) {
	reg, st := trimScope(t)
	rule := &model.Rule{
		Name:   "trim_all",
		Output: &model.ArgsTuple{Pos: []any{"{:this:}/{sample}.R1.fq.gz"}},
		Shell:  "true",
	}
	require.NoError(t, expand.NewContextExpander(reg).Expand(context.Background(), rule))

	require.Equal(t, "{_sw_dir}trim{_sp_qual}/{sample}.R1.fq.gz", rule.Output.Pos[0])
	require.Contains(t, st.Outputs(), "/{sample}.R1.fq.gz")
	require.Equal(t, []string{"trim_all"}, st.Rules())
}

func TestContextExpander_That(t *testing.T) {
	reg := stage.NewRegistry()
	st := stage.NewStage("dust", "nodust")
	st.Source = "stages/dust.hcl:1"
	require.NoError(t, reg.RegisterStage(st))
	scope, err := reg.BeginStage(st)
	require.NoError(t, err)
	t.Cleanup(func() { reg.EndStage(scope) })

	rule := &model.Rule{
		Name: "dust_filter",
		Output: &model.ArgsTuple{Pos: []any{
			"{:this:}/{sample}.fq.gz",
			"{:that:}/{sample}.fq.gz",
		}},
		Shell: "true",
	}
	require.NoError(t, expand.NewContextExpander(reg).Expand(context.Background(), rule))

	require.Equal(t, "{_sw_dir}dust/{sample}.fq.gz", rule.Output.Pos[0])
	require.Equal(t, "{_sw_dir}nodust/{sample}.fq.gz", rule.Output.Pos[1])
	// Only the primary directory contributes an output type.
	require.Len(t, st.Outputs(), 1)
}

func TestContextExpander_ThatRequiresAltname(t *testing.T) {
	reg, _ := trimScope(t)
	rule := &model.Rule{
		Name:   "trim_split",
		Output: &model.ArgsTuple{Pos: []any{"{:that:}/{sample}.fq.gz"}},
		Shell:  "true",
	}
	err := expand.NewContextExpander(reg).Expand(context.Background(), rule)
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires altname")
}

func TestContextExpander_ParamInjection(t *testing.T) {
	reg, st := trimScope(t)
	rule := &model.Rule{Name: "trim_all", Shell: "true"}
	require.NoError(t, expand.NewContextExpander(reg).Expand(context.Background(), rule))

	late, ok := rule.Params.Get("qual").(*expand.LateFunc)
	require.True(t, ok)

	out, err := late.Call(map[string]any{
		"wildcards": map[string]string{"_sp_qual": "Q20"},
	})
	require.NoError(t, err)
	require.Equal(t, "20", out)

	// Absent capture falls back to the parameter default.
	out, err = late.Call(map[string]any{
		"wildcards": map[string]string{},
	})
	require.NoError(t, err)
	require.Equal(t, "5", out)

	require.Equal(t, st.WildcardConstraints(), rule.WildcardConstraints)
}

func TestContextExpander_Prev(t *testing.T) {
	reg, st := trimScope(t)
	rule := &model.Rule{
		Name:  "trim_all",
		Input: &model.ArgsTuple{Pos: []any{"{:prev:}/{sample}.R1.fq.gz"}},
		Shell: "true",
	}
	require.NoError(t, expand.NewContextExpander(reg).Expand(context.Background(), rule))

	// The input type is inferred at definition time.
	require.Contains(t, st.Inputs(), "/{sample}.R1.fq.gz")

	// The directory is deferred until per-job wildcards exist.
	late, ok := rule.Input.Pos[0].(*expand.LateFunc)
	require.True(t, ok)

	out, err := late.Call(map[string]any{
		"wildcards": map[string]string{
			stage.DirWildcard: "proj.",
			"_sp_qual":        "",
			"sample":          "s1",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "proj/s1.R1.fq.gz", out)
}

func TestContextExpander_Targets(t *testing.T) {
	reg, _ := trimScope(t)
	rule := &model.Rule{
		Name:   "trim_report",
		Input:  &model.ArgsTuple{Pos: []any{"{:prev:}/{sample}.R1.fq.gz"}},
		Params: &model.ArgsTuple{Named: []model.NamedArg{{Name: "ids", Value: "{:targets:}"}}},
		Shell:  "true",
	}
	require.NoError(t, expand.NewContextExpander(reg).Expand(context.Background(), rule))

	late, ok := rule.Params.Get("ids").(*expand.LateFunc)
	require.True(t, ok)

	out, err := late.Call(map[string]any{
		"wildcards": map[string]string{
			stage.DirWildcard: "proj.",
			"_sp_qual":        "",
		},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"s1", "s2"}, strings.Split(out, " "))
}

func TestContextExpander_UnknownPlaceholder(t *testing.T) {
	reg, _ := trimScope(t)
	rule := &model.Rule{
		Name:   "trim_bad",
		Output: &model.ArgsTuple{Pos: []any{"{:bogus:}/x.txt"}},
		Shell:  "true",
	}
	err := expand.NewContextExpander(reg).Expand(context.Background(), rule)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bogus")
}
