package buildstep_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
)

func TestParseSaltKind(t *testing.T) {
	t.Parallel()

	k, err := buildstep.ParseSaltKind("")
	require.NoError(t, err)
	assert.Equal(t, buildstep.SaltBase, k)

	k, err = buildstep.ParseSaltKind("pkgconfig")
	require.NoError(t, err)
	assert.Equal(t, buildstep.SaltPkgConfig, k)

	_, err = buildstep.ParseSaltKind("cmake")
	assert.Error(t, err)
}

func TestSalt_AppendsSearchPaths(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bzip2 := f.step(t, buildstep.Definition{Name: "bzip2"})
	base := toolchain.Flags{"LDFLAGS": "-Wl,--fix-cortex-a8", "CFLAGS": "-O2"}

	got := bzip2.Salt(base)

	l := bzip2.Paths()
	assert.Equal(t, "-Wl,--fix-cortex-a8 -L"+l.BuildLib(), got["LDFLAGS"])
	assert.Equal(t, "-O2 -I"+l.IncludeDir(), got["CFLAGS"])
	assert.Equal(t, "-I"+l.IncludeDir(), got["CXXFLAGS"])
	assert.Equal(t, l.BuildLib(), got["LD_LIBRARY_PATH"])
	assert.NotContains(t, got, "PKG_CONFIG_PATH")
	assert.Equal(t, "-O2", base["CFLAGS"], "base flags are not modified")
}

func TestSalt_PkgConfig(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sqlite := f.step(t, buildstep.Definition{Name: "sqlite", SaltKind: buildstep.SaltPkgConfig})

	got := sqlite.Salt(toolchain.Flags{})

	assert.Equal(t, sqlite.Paths().PkgConfigDir(), got["PKG_CONFIG_PATH"])
}

func TestComposeFlags_OrderAndExtras(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	iconv := f.step(t, buildstep.Definition{Name: "libiconv"})
	sqlite := f.step(t, buildstep.Definition{Name: "sqlite", SaltKind: buildstep.SaltPkgConfig})
	geos := f.step(t, buildstep.Definition{Name: "geos", SaltKind: buildstep.SaltPkgConfig})
	spatialite := f.step(t, buildstep.Definition{
		Name:       "spatialite",
		ExtraFlags: toolchain.Flags{"LDFLAGS": "+-lm", "CPPFLAGS": "-DSQLITE"},
	})
	spatialite.BindSalts([]*buildstep.Step{iconv, sqlite, geos})

	flags := spatialite.ComposeFlags()

	ld := flags["LDFLAGS"]
	assert.True(t, strings.HasPrefix(ld, toolchain.DefaultLDFlags))
	assert.True(t, strings.HasSuffix(ld, " -lm"))
	iIconv := strings.Index(ld, iconv.Paths().BuildLib())
	iSqlite := strings.Index(ld, sqlite.Paths().BuildLib())
	iGeos := strings.Index(ld, geos.Paths().BuildLib())
	assert.True(t, iIconv < iSqlite && iSqlite < iGeos, "salts applied in declaration order: %s", ld)

	sep := string(os.PathListSeparator)
	assert.Equal(t, sqlite.Paths().PkgConfigDir()+sep+geos.Paths().PkgConfigDir(), flags["PKG_CONFIG_PATH"])
	assert.Equal(t, "-DSQLITE", flags["CPPFLAGS"])
	assert.Equal(t, "arm-linux-androideabi-gcc", flags["CC"])
	assert.Len(t, spatialite.SaltSources(), 3)
}
