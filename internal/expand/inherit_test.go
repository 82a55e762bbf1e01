package expand_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/expand"
	"github.com/vk/stagewalk/internal/model"
	"github.com/vk/stagewalk/internal/stage"
)

func TestInheritanceExpander(t *testing.T) {
	parent := &model.Rule{
		Name:    "align_bowtie",
		Doc:     "Map reads against the index.",
		Input:   &model.ArgsTuple{Pos: []any{"reads.fq"}},
		Output:  &model.ArgsTuple{Pos: []any{"aligned.bam"}},
		Params:  &model.ArgsTuple{Named: []model.NamedArg{{Name: "k", Value: "21"}, {Name: "mode", Value: "fast"}}},
		Threads: 8,
		Shell:   "bowtie2 ...",
	}
	rules := map[string]*model.Rule{parent.Name: parent}

	t.Run("no extends is a no-op", func(t *testing.T) {
		rule := &model.Rule{Name: "plain"}
		exp := expand.NewInheritanceExpander(rules, nil)
		require.NoError(t, exp.Expand(context.Background(), rule))
		require.Nil(t, rule.Input)
	})

	t.Run("missing parent", func(t *testing.T) {
		rule := &model.Rule{Name: "orphan", Extends: "nothere"}
		exp := expand.NewInheritanceExpander(rules, nil)
		err := exp.Expand(context.Background(), rule)

		var inheritErr *expand.InheritanceError
		require.ErrorAs(t, err, &inheritErr)
		require.Contains(t, err.Error(), "unable to find parent")
	})

	t.Run("child overrides win, the rest is inherited", func(t *testing.T) {
		rule := &model.Rule{
			Name:    "align_bowtie_sensitive",
			Extends: "align_bowtie",
			Output:  &model.ArgsTuple{Pos: []any{"sensitive.bam"}},
			Params:  &model.ArgsTuple{Named: []model.NamedArg{{Name: "mode", Value: "sensitive"}}},
		}
		exp := expand.NewInheritanceExpander(rules, nil)
		require.NoError(t, exp.Expand(context.Background(), rule))

		require.Equal(t, []any{"reads.fq"}, rule.Input.Pos)
		require.Equal(t, []any{"sensitive.bam"}, rule.Output.Pos)
		require.Equal(t, "21", rule.Params.Get("k"))
		require.Equal(t, "sensitive", rule.Params.Get("mode"))
		require.Equal(t, "bowtie2 ...", rule.Shell)
		require.Equal(t, 8, rule.Threads)
		require.Equal(t, "Map reads against the index.", rule.Doc)

		// The parent's tuples stay untouched.
		require.Equal(t, []any{"aligned.bam"}, parent.Output.Pos)
		require.Equal(t, "fast", parent.Params.Get("mode"))
	})

	t.Run("child payload blocks inheritance of the parent's", func(t *testing.T) {
		rule := &model.Rule{
			Name:    "align_custom",
			Extends: "align_bowtie",
			Script:  "scripts/custom.py",
		}
		exp := expand.NewInheritanceExpander(rules, nil)
		require.NoError(t, exp.Expand(context.Background(), rule))
		require.Equal(t, "scripts/custom.py", rule.Script)
		require.Empty(t, rule.Shell)
	})

	t.Run("runnable parent is preferred by the execution engine", func(t *testing.T) {
		reg := stage.NewRegistry()
		rule := &model.Rule{Name: "align_derived", Extends: "align_bowtie"}
		exp := expand.NewInheritanceExpander(rules, reg)
		require.NoError(t, exp.Expand(context.Background(), rule))

		require.Equal(t, [][2]string{{"align_bowtie", "align_derived"}}, reg.RuleOrder())
	})
}

func TestDefaultExpander(t *testing.T) {
	t.Run("nil defaults is a no-op", func(t *testing.T) {
		rule := &model.Rule{Name: "plain"}
		require.NoError(t, expand.NewDefaultExpander(nil).Expand(context.Background(), rule))
	})

	t.Run("defaults fill empty fields only", func(t *testing.T) {
		defaults := &model.Rule{
			Name:      "defaults",
			Resources: &model.ArgsTuple{Named: []model.NamedArg{{Name: "mem", Value: "4g"}}},
			Threads:   1,
		}
		rule := &model.Rule{Name: "heavy", Threads: 16}
		require.NoError(t, expand.NewDefaultExpander(defaults).Expand(context.Background(), rule))

		require.Equal(t, "4g", rule.Resources.Get("mem"))
		require.Equal(t, 16, rule.Threads)
	})
}
