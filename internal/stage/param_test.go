package stage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stagewalk/internal/stage"
)

func TestNewParam(t *testing.T) {
	t.Run("flag requires value", func(t *testing.T) {
		_, err := stage.NewParam("trim", stage.ParamFlag, "N", "nodedup", "", nil, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "must have 'value' set")
	})

	t.Run("int requires default", func(t *testing.T) {
		_, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", nil, nil)
		require.Error(t, err)
	})

	t.Run("choice requires choices", func(t *testing.T) {
		_, err := stage.NewParam("map", stage.ParamChoice, "M", "mapper", "", "bowtie", nil)
		require.Error(t, err)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := stage.NewParam("trim", stage.ParamInt, "", "qual", "", 5, nil)
		require.Error(t, err)
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := stage.NewParam("trim", stage.ParamKind("bogus"), "Q", "qual", "", 5, nil)
		require.Error(t, err)
	})
}

func TestParam_Parse(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		p, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", 5, nil)
		require.NoError(t, err)

		v, err := p.Parse("Q10")
		require.NoError(t, err)
		require.Equal(t, 10, v)

		v, err = p.Parse("")
		require.NoError(t, err)
		require.Equal(t, 5, v)
	})

	t.Run("flag", func(t *testing.T) {
		p, err := stage.NewParam("dedup", stage.ParamFlag, "N", "mode", "unique", nil, nil)
		require.NoError(t, err)

		v, err := p.Parse("N")
		require.NoError(t, err)
		require.Equal(t, "unique", v)

		v, err = p.Parse("")
		require.NoError(t, err)
		require.Equal(t, "", v)
	})

	t.Run("choice", func(t *testing.T) {
		p, err := stage.NewParam("map", stage.ParamChoice, "M", "mapper", "", "bowtie",
			[]string{"bowtie", "bwa"})
		require.NoError(t, err)

		v, err := p.Parse("Mbwa")
		require.NoError(t, err)
		require.Equal(t, "bwa", v)

		v, err = p.Parse("")
		require.NoError(t, err)
		require.Equal(t, "bowtie", v)
	})
}

func TestParam_Format(t *testing.T) {
	intP, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", 5, nil)
	require.NoError(t, err)
	require.Equal(t, "", intP.Format(5))
	require.Equal(t, "Q20", intP.Format(20))

	flagP, err := stage.NewParam("dedup", stage.ParamFlag, "N", "mode", "unique", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "", flagP.Format(""))
	require.Equal(t, "N", flagP.Format("unique"))
}

func TestParam_Wildcard(t *testing.T) {
	p, err := stage.NewParam("trim", stage.ParamInt, "Q", "qual", "", 5, nil)
	require.NoError(t, err)
	require.Equal(t, "_sp_qual", p.Wildcard())
	require.Equal(t, "{_sp_qual}", p.Pattern())
}
