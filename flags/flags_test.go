package flags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestFlagsHaveEnvVars(t *testing.T) {
	for _, f := range Flags {
		dc, ok := f.(cli.DocGenerationFlag)
		require.True(t, ok, "flag %v", f.Names())
		envs := dc.GetEnvVars()
		require.NotEmpty(t, envs, "flag %s has no env var", f.Names()[0])
		for _, env := range envs {
			assert.True(t, strings.HasPrefix(env, EnvVarPrefix+"_"),
				"env var %s missing %s prefix", env, EnvVarPrefix)
		}
	}
}

func TestFlagNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Flags {
		for _, name := range f.Names() {
			assert.False(t, seen[name], "duplicate flag name %s", name)
			seen[name] = true
		}
	}
}
