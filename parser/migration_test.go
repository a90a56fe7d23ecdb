package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateLegacyOrientation(t *testing.T) {
	out := MigrateLegacyPoses("a = [..., 0, pi, 0]")
	require.Equal(t, "a = (..., 0, pi, 0)", out)
}

func TestMigrateKeepsListLiterals(t *testing.T) {
	// three-element brackets are list literals in the current grammar
	out := MigrateLegacyPoses("a = [1, 2, 3]")
	require.Equal(t, "a = [1, 2, 3]", out)
}

func TestMigrateKeepsFrameRelations(t *testing.T) {
	out := MigrateLegacyPoses("[a | b] = (0, 0, 10, 0, 0, 0)")
	require.Equal(t, "[a | b] = (0, 0, 10, 0, 0, 0)", out)
}
