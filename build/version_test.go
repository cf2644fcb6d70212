package build

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	v := newVer(1, 2, 3)
	require.Equal(t, "1.2.3", v.String())

	mj, mi, p := v.Ints()
	require.Equal(t, []uint32{1, 2, 3}, []uint32{mj, mi, p})

	require.True(t, v.EqMajorMinor(newVer(1, 2, 9)))
	require.False(t, v.EqMajorMinor(newVer(1, 3, 3)))
}

func TestUserVersion(t *testing.T) {
	old := BuildType
	defer func() { BuildType = old }()

	BuildType = BuildTest
	require.Equal(t, BuildVersion+"+test"+CurrentCommit, UserVersion())
}
