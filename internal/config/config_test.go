package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertwitch/fts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
default-profile: media
profiles:
  - name: media
    roots: ["/srv/media"]
    mode: logical
    xdev: true
    sort: name
    workers: 8
    manifest: /var/lib/ftswalk/media.db
  - name: quick
    mode: physical
    nostat: true
    no-hash: true
`

// TestLoad_Success tests loading a configuration from an explicit file.
func TestLoad_Success(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ftswalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "media", cfg.DefaultProfile)

	media := cfg.Profiles[0]
	assert.Equal(t, "media", media.Name)
	assert.Equal(t, []string{"/srv/media"}, media.Roots)
	assert.Equal(t, ModeLogical, media.Mode)
	assert.True(t, media.XDev)
	assert.Equal(t, SortName, media.Sort)
	assert.Equal(t, 8, media.Workers)
	assert.Equal(t, "/var/lib/ftswalk/media.db", media.Manifest)

	quick := cfg.Profiles[1]
	assert.Equal(t, "quick", quick.Name)
	assert.True(t, quick.NoStat)
	assert.True(t, quick.NoHash)
	assert.False(t, quick.XDev)
}

// TestLoad_Success_NotFound tests that a missing file in the search paths is
// tolerated and yields an empty configuration.
func TestLoad_Success_NotFound(t *testing.T) { //nolint:paralleltest
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Profiles)
}

// TestLoad_Fail_MissingExplicit tests that a missing explicit file errors.
func TestLoad_Fail_MissingExplicit(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Nil(t, cfg)
}

// TestLoadFromString_Success tests parsing configuration from a YAML string.
func TestLoadFromString_Success(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromString(testYAML)
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 2)
}

// TestLoadFromString_Fail_Duplicate tests rejection of duplicate profiles.
func TestLoadFromString_Fail_Duplicate(t *testing.T) {
	t.Parallel()

	yaml := `
profiles:
  - name: same
  - name: same
`

	cfg, err := LoadFromString(yaml)

	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidProfile)
	assert.Nil(t, cfg)
}

// TestLoadFromString_Fail_BadYAML tests rejection of malformed YAML.
func TestLoadFromString_Fail_BadYAML(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromString("profiles: [no")

	require.Error(t, err)
	assert.Nil(t, cfg)
}

// TestGetProfile_Success tests profile lookup by name.
func TestGetProfile_Success(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromString(testYAML)
	require.NoError(t, err)

	p, err := cfg.GetProfile("quick")
	require.NoError(t, err)
	assert.Equal(t, "quick", p.Name)

	_, err = cfg.GetProfile("missing")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

// TestValidate_Fail tests the profile validation failure modes.
func TestValidate_Fail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile Profile
		wantErr error
	}{
		{"bad mode", Profile{Name: "p", Mode: "hybrid"}, ErrInvalidMode},
		{"bad sort", Profile{Name: "p", Sort: "mtime"}, ErrInvalidSort},
		{"bad workers", Profile{Name: "p", Workers: -1}, ErrInvalidWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.profile.Validate()

			require.Error(t, err)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := Config{Profiles: []Profile{{Name: ""}}}

	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidProfile)

	cfg = Config{DefaultProfile: "ghost", Profiles: []Profile{{Name: "p"}}}

	err = cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

// TestWalkOptions_Success tests mapping profile settings to walk options.
func TestWalkOptions_Success(t *testing.T) {
	t.Parallel()

	p := Profile{
		Mode:        ModeLogical,
		FollowRoots: true,
		XDev:        true,
		SeeDot:      true,
		NoStat:      true,
		Whiteout:    true,
	}

	opts, err := p.WalkOptions()
	require.NoError(t, err)

	assert.Equal(t, fts.Logical|fts.ComFollow|fts.XDev|fts.SeeDot|fts.NoStat|fts.Whiteout, opts)

	opts, err = (&Profile{}).WalkOptions()
	require.NoError(t, err)
	assert.Equal(t, fts.Physical, opts)

	_, err = (&Profile{Mode: "hybrid"}).WalkOptions()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidMode)
}

// TestCompareFunc_Success tests mapping profile sort orders to comparators.
func TestCompareFunc_Success(t *testing.T) {
	t.Parallel()

	a := &fts.Entry{Name: "alpha", Size: 100}
	b := &fts.Entry{Name: "beta", Size: 50}

	cmpFn, err := (&Profile{Sort: SortNone}).CompareFunc()
	require.NoError(t, err)
	assert.Nil(t, cmpFn)

	cmpFn, err = (&Profile{Sort: SortName}).CompareFunc()
	require.NoError(t, err)
	require.NotNil(t, cmpFn)
	assert.Negative(t, cmpFn(a, b))

	cmpFn, err = (&Profile{Sort: SortSize}).CompareFunc()
	require.NoError(t, err)
	require.NotNil(t, cmpFn)
	assert.Positive(t, cmpFn(a, b))

	_, err = (&Profile{Sort: "mtime"}).CompareFunc()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidSort)
}

// TestEnvHandler_Apply_Success tests overlaying settings from an env file.
func TestEnvHandler_Apply_Success(t *testing.T) {
	t.Parallel()

	envFile := filepath.Join(t.TempDir(), "ftswalk.env")
	content := `
FTSWALK_MODE=logical
FTSWALK_XDEV=true
FTSWALK_WORKERS=4
FTSWALK_MANIFEST=/tmp/scan.db
FTSWALK_NO_HASH=1
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	p := Profile{Mode: ModePhysical, Workers: 8, LogLevel: "info"}

	h := NewEnvHandler()
	require.NoError(t, h.Apply(&p, envFile))

	assert.Equal(t, ModeLogical, p.Mode)
	assert.True(t, p.XDev)
	assert.Equal(t, 4, p.Workers)
	assert.Equal(t, "/tmp/scan.db", p.Manifest)
	assert.True(t, p.NoHash)

	// Keys absent from the file leave the profile untouched.
	assert.Equal(t, "info", p.LogLevel)
	assert.False(t, p.SeeDot)
}

// TestEnvHandler_Apply_Fail tests applying a missing env file.
func TestEnvHandler_Apply_Fail(t *testing.T) {
	t.Parallel()

	h := NewEnvHandler()
	err := h.Apply(&Profile{}, filepath.Join(t.TempDir(), "nope.env"))

	require.Error(t, err)
}

type fakeEnvReader struct {
	envMap map[string]string
	err    error
}

func (f *fakeEnvReader) Read(_ ...string) (map[string]string, error) {
	return f.envMap, f.err
}

// TestEnvHandler_Apply_Success_Reader tests the handler with a fake reader and
// unparsable values.
func TestEnvHandler_Apply_Success_Reader(t *testing.T) {
	t.Parallel()

	h := &EnvHandler{Reader: &fakeEnvReader{envMap: map[string]string{
		envSort:    "size",
		envXDev:    "not-a-bool",
		envWorkers: "not-a-number",
	}}}

	p := Profile{Workers: 2}
	require.NoError(t, h.Apply(&p))

	assert.Equal(t, SortSize, p.Sort)
	assert.False(t, p.XDev)
	assert.Equal(t, 2, p.Workers)
}

// TestEnvHandler_Apply_Fail_Reader tests the handler with a failing reader.
func TestEnvHandler_Apply_Fail_Reader(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("read failed")

	h := &EnvHandler{Reader: &fakeEnvReader{err: wantErr}}

	err := h.Apply(&Profile{})

	require.Error(t, err)
	require.ErrorIs(t, err, wantErr)
}
