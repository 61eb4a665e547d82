package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestLevenshteinRatio(t *testing.T) {
	require.Equal(t, 1.0, levenshteinRatio("", ""))
	require.Equal(t, 1.0, levenshteinRatio("stage", "stage"))
	require.True(t, levenshteinRatio("stag", "stage") > 0.6)
	require.True(t, levenshteinRatio("xyz", "stage") < 0.6)
}

func TestFindSimilarCommands(t *testing.T) {
	cmds := []cli.Command{
		{Name: "stage", Aliases: []string{"add"}},
		{Name: "staged"},
		{Name: "snapshot", Aliases: []string{"commit"}},
		{Name: "branch"},
	}

	similars := findSimilarCommands("stag", cmds)
	require.Len(t, similars, 2)
	require.Equal(t, "stage", similars[0].name)
	require.Equal(t, "staged", similars[1].name)

	similars = findSimilarCommands("comit", cmds)
	require.Len(t, similars, 1)
	require.Equal(t, "snapshot", similars[0].name)

	similars = findSimilarCommands("checkout", cmds)
	require.Len(t, similars, 1)
	require.Equal(t, "branch", similars[0].name)

	require.Empty(t, findSimilarCommands("xyz", cmds))
}
