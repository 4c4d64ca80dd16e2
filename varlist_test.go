package backdoor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVarListIndicesAndIntervals(t *testing.T) {
	got, err := ParseVarList("1,3-5,8")
	require.NoError(t, err)
	require.Equal(t, []Var{0, 2, 3, 4, 7}, got)
}

func TestParseVarListEmpty(t *testing.T) {
	got, err := ParseVarList("")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestParseVarListFileIndirection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vars.txt")
	require.NoError(t, os.WriteFile(path, []byte("1,2\n# comment\n5-6\n"), 0o644))

	got, err := ParseVarList("@" + path)
	require.NoError(t, err)
	require.Equal(t, []Var{0, 1, 4, 5}, got)
}

func TestParseVarListAggregatesErrors(t *testing.T) {
	_, err := ParseVarList("1,foo,3,bar")
	if err == nil {
		t.Fatal("expected an aggregated error for malformed tokens")
	}
}

func TestParseVarListRejectsNonPositive(t *testing.T) {
	if _, err := ParseVarList("0"); err == nil {
		t.Fatal("expected an error for index 0 (1-based indices only)")
	}
}
