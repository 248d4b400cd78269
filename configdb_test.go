package configdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/configdb/streams"
)

var mandatoryKeys = []string{"username", "database", "password"}

// envMap is an injectable environment.
type envMap map[string]string

func (m envMap) lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// countingStore counts Dump calls on top of FileStore.
type countingStore struct {
	FileStore
	dumps int
}

func (s *countingStore) Dump(doc Document, path string) error {
	s.dumps++
	return s.FileStore.Dump(doc, path)
}

func fixture() Document {
	def, alt := Profile{}, Profile{}
	for _, k := range mandatoryKeys {
		def[k] = "my" + k
		alt[k] = "other" + k
	}
	return Document{"default": def, "alternative": alt}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, FileStore{}.Dump(fixture(), p))
	return p
}

func TestResolve_MissingFile_GeneratesTemplate(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		required []string
		want     Document
	}{
		{
			name: "default required keys",
			want: Document{"default": Profile{"dbname": nil, "user": nil, "pwd": nil}},
		},
		{
			name:     "explicit required keys",
			required: []string{"param1", "param2", "param3"},
			want:     Document{"default": Profile{"param1": nil, "param2": nil, "param3": nil}},
		},
		{
			name: "resolver required keys",
			opts: []Option{WithRequired("host", "port")},
			want: Document{"default": Profile{"host": nil, "port": nil}},
		},
		{
			name:     "explicit empty required list",
			required: []string{},
			want:     Document{"default": Profile{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "nonexistingconfig")
			r := New(append(tt.opts, WithLookupEnv(envMap{}.lookup))...)

			got, err := r.Resolve(Request{ConfigFile: p, Required: tt.required})
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrMissingValue)

			var mv *MissingValueError
			require.True(t, errors.As(err, &mv))
			assert.True(t, mv.Created)
			assert.Equal(t, p, mv.Path)

			doc, err := FileStore{}.Load(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc)
		})
	}
}

func TestResolve_MissingFile_ReportsKeysInOrder(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	_, err := New(WithLookupEnv(envMap{}.lookup)).Resolve(Request{
		ConfigFile: p,
		Required:   []string{"zeta", "alpha", "zeta", "mid"},
	})

	var mv *MissingValueError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, mv.Keys)
	assert.Contains(t, err.Error(), p)
	assert.Contains(t, err.Error(), "zeta, alpha, mid")
}

func TestResolve_CreatesSubdirs(t *testing.T) {
	td := t.TempDir()
	p := filepath.Join(td, "asubdir", "anothersubdir", "config.yaml")

	_, err := New().Resolve(Request{ConfigFile: p, Required: mandatoryKeys})
	require.ErrorIs(t, err, ErrMissingValue)

	info, err := os.Stat(filepath.Join(td, "asubdir", "anothersubdir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	doc, err := FileStore{}.Load(p)
	require.NoError(t, err)
	assert.Equal(t, Template(mandatoryKeys), doc)
}

func TestResolve_SelectsProfile(t *testing.T) {
	p := writeFixture(t)
	data := fixture()

	tests := []struct {
		name string
		env  envMap
		req  Request
		want Profile
	}{
		{
			name: "takes default profile",
			req:  Request{ConfigFile: p, Required: mandatoryKeys},
			want: data["default"],
		},
		{
			name: "explicit profile takes alternative data",
			req:  Request{ConfigFile: p, Profile: "alternative", Required: mandatoryKeys},
			want: data["alternative"],
		},
		{
			name: "environment takes alternative data",
			env:  envMap{ProfileEnvVar: "alternative"},
			req:  Request{ConfigFile: p, Required: mandatoryKeys},
			want: data["alternative"],
		},
		{
			name: "explicit profile beats environment",
			env:  envMap{ProfileEnvVar: "alternative"},
			req:  Request{ConfigFile: p, Profile: "default", Required: mandatoryKeys},
			want: data["default"],
		},
		{
			name: "empty environment value is ignored",
			env:  envMap{ProfileEnvVar: ""},
			req:  Request{ConfigFile: p, Required: mandatoryKeys},
			want: data["default"],
		},
		{
			name: "path from environment",
			env:  envMap{PathEnvVar: p},
			req:  Request{Profile: "alternative", Required: mandatoryKeys},
			want: data["alternative"],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.env
			if env == nil {
				env = envMap{}
			}
			got, err := New(WithLookupEnv(env.lookup)).Resolve(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestResolve_ProcessEnvironment(t *testing.T) {
	p := writeFixture(t)
	t.Setenv(PathEnvVar, "")
	t.Setenv(ProfileEnvVar, "alternative")

	got, err := Resolve(Request{ConfigFile: p, Required: mandatoryKeys})
	require.NoError(t, err)
	assert.Equal(t, fixture()["alternative"], got)
}

func TestResolve_BadProfile(t *testing.T) {
	p := writeFixture(t)

	_, err := New(WithLookupEnv(envMap{}.lookup)).Resolve(Request{ConfigFile: p, Profile: "badprofile"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadProfile)
	assert.NotErrorIs(t, err, ErrMissingValue)
	assert.EqualError(t, err,
		"Database profile 'badprofile' not availabe in '"+p+"', try with: alternative, default")

	var bp *BadProfileError
	require.True(t, errors.As(err, &bp))
	assert.Equal(t, "badprofile", bp.Profile)
	assert.Equal(t, p, bp.Path)
	assert.Equal(t, []string{"alternative", "default"}, bp.Available)
}

func TestResolve_BadProfileFromEnvironment(t *testing.T) {
	p := writeFixture(t)

	_, err := New(WithLookupEnv(envMap{ProfileEnvVar: "staging"}.lookup)).Resolve(Request{ConfigFile: p})
	var bp *BadProfileError
	require.True(t, errors.As(err, &bp))
	assert.Equal(t, "staging", bp.Profile)
}

func TestResolve_MissingValuesInExistingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	contents := "default:\n  username: me\n  database: null\nother:\n  username: x\n"
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	before, err := os.Stat(p)
	require.NoError(t, err)

	store := &countingStore{}
	bufs := streams.Buffers()
	_, err = New(WithStore(store), WithStreams(bufs), WithLookupEnv(envMap{}.lookup)).
		Resolve(Request{ConfigFile: p, Required: mandatoryKeys})

	var mv *MissingValueError
	require.True(t, errors.As(err, &mv))
	assert.False(t, mv.Created)
	assert.Equal(t, []string{"database", "password"}, mv.Keys)
	assert.Equal(t, 0, store.dumps)

	after, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, contents, string(b))

	_, errOut := bufs.Strings()
	assert.Contains(t, errOut, "missing")
}

func TestResolve_Idempotent(t *testing.T) {
	p := writeFixture(t)
	store := &countingStore{}
	r := New(WithStore(store), WithLookupEnv(envMap{}.lookup))

	first, err := r.Resolve(Request{ConfigFile: p, Required: mandatoryKeys})
	require.NoError(t, err)
	second, err := r.Resolve(Request{ConfigFile: p, Required: mandatoryKeys})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, store.dumps)
}

func TestResolve_RereadsFile(t *testing.T) {
	p := writeFixture(t)
	r := New(WithLookupEnv(envMap{}.lookup))

	_, err := r.Resolve(Request{ConfigFile: p, Required: mandatoryKeys})
	require.NoError(t, err)

	require.NoError(t, FileStore{}.Dump(Document{"default": Profile{"username": "changed"}}, p))
	_, err = r.Resolve(Request{ConfigFile: p, Required: mandatoryKeys})
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestResolve_Streams(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	bufs := streams.Buffers()
	r := New(WithStreams(bufs), WithLookupEnv(envMap{}.lookup))

	_, err := r.Resolve(Request{ConfigFile: p, Required: []string{"k"}})
	require.ErrorIs(t, err, ErrMissingValue)
	out, _ := bufs.Strings()
	assert.Contains(t, out, "configdb: created template config at "+p)

	require.NoError(t, FileStore{}.Dump(Document{"default": Profile{"k": "v"}}, p))
	bufs.Reset()
	_, err = r.Resolve(Request{ConfigFile: p, Required: []string{"k"}})
	require.NoError(t, err)
	out, _ = bufs.Strings()
	assert.Contains(t, out, "configdb: loaded profile 'default' from "+p)
}

func TestResolve_StoreErrors(t *testing.T) {
	td := t.TempDir()

	bad := filepath.Join(td, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("default: [unclosed\n"), 0o600))
	_, err := New().Resolve(Request{ConfigFile: bad})
	assert.ErrorIs(t, err, ErrParse)

	_, err = New().Resolve(Request{ConfigFile: filepath.Join(td, "notes.txt")})
	assert.ErrorIs(t, err, ErrUnsupportedConfigFileType)

	// A regular file where a parent directory should be.
	blocker := filepath.Join(td, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	_, err = New().Resolve(Request{ConfigFile: filepath.Join(blocker, "sub", "config.yaml")})
	assert.NotErrorIs(t, err, ErrMissingValue)
	assert.Error(t, err)
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	assert.Equal(t, "/home/u/.config/configdb/1.0/configdb.yaml", DefaultConfigPath())

	r := New(WithLookupEnv(envMap{"HOME": "/srv/app"}.lookup))
	assert.Equal(t, "/srv/app/.config/configdb/1.0/configdb.yaml", r.DefaultConfigPath())

	r = New(WithLookupEnv(envMap{"USERPROFILE": "/users/w"}.lookup))
	assert.Equal(t, filepath.Join("/users/w", ".config", "configdb", "1.0", "configdb.yaml"), r.DefaultConfigPath())
}

func TestResolve_DefaultPath(t *testing.T) {
	home := t.TempDir()
	r := New(WithLookupEnv(envMap{"HOME": home}.lookup))

	_, err := r.Resolve(Request{})
	require.ErrorIs(t, err, ErrMissingValue)
	_, err = os.Stat(filepath.Join(home, ".config", "configdb", "1.0", "configdb.yaml"))
	assert.NoError(t, err)
}

func TestOptions_Panics(t *testing.T) {
	assert.Panics(t, func() { New(WithStore(nil)) })
	assert.Panics(t, func() { New(WithLookupEnv(nil)) })
}

func TestResolve_EmptyProfileBody(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("default:\n"), 0o600))
	r := New(WithLookupEnv(envMap{}.lookup))

	got, err := r.Resolve(Request{ConfigFile: p, Required: []string{}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)

	_, err = r.Resolve(Request{ConfigFile: p, Required: []string{"user"}})
	var mv *MissingValueError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, []string{"user"}, mv.Keys)
}

func TestResolve_BadProfileInEmptyFile(t *testing.T) {
	for _, contents := range []string{"", "  \n\n"} {
		p := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))

		_, err := New(WithLookupEnv(envMap{}.lookup)).Resolve(Request{ConfigFile: p})
		// An empty file has no profiles; the message keeps its trailing "try with: ".
		assert.EqualError(t, err, "Database profile 'default' not availabe in '"+p+"', try with: ")
		var bp *BadProfileError
		require.True(t, errors.As(err, &bp))
		assert.Empty(t, bp.Available)
	}
}
