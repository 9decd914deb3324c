package template_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/melizalab/capturectl/internal/template"
)

func TestExpand_SubstitutesBoundVariables(t *testing.T) {
	vars := map[string]string{"year": "2026", "entry": "3"}
	got := template.Expander{}.Expand("rec_%year%_%entry%.wav", vars)
	require.Equal(t, "rec_2026_3.wav", got)
}

func TestExpand_UnboundVariablesRenderAsUnderscore(t *testing.T) {
	got := template.Expander{}.Expand("rec_%missing%.wav", map[string]string{})
	require.Equal(t, "rec__.wav", got)
}

func TestExpand_LiteralTextWithoutDelimitersPassesThrough(t *testing.T) {
	got := template.Expander{}.Expand("plain.wav", map[string]string{"year": "2026"})
	require.Equal(t, "plain.wav", got)
}

func TestExpand_UnterminatedDelimiterPassesThrough(t *testing.T) {
	got := template.Expander{}.Expand("rec_%year.wav", map[string]string{"year": "2026"})
	require.Equal(t, "rec_%year.wav", got)
}

func TestWallClockVars_FormatsExpectedFields(t *testing.T) {
	at := time.Date(2026, time.March, 5, 9, 7, 2, 0, time.UTC)
	vars := template.WallClockVars(at)

	require.Equal(t, "2026", vars["year"])
	require.Equal(t, "March", vars["month"])
	require.Equal(t, "05", vars["day"])
	require.Equal(t, "09", vars["hour"])
	require.Equal(t, "07", vars["min"])
	require.Equal(t, "02", vars["sec"])
}
