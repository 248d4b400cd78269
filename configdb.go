package configdb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ygrebnov/configdb/streams"
)

const (
	// AppNamespace, Version and FileName are the fixed segments of the
	// default config path: <HOME>/.config/<AppNamespace>/<Version>/<FileName>.
	AppNamespace = "configdb"
	Version      = "1.0"
	FileName     = "configdb.yaml"

	// DefaultProfile is selected when neither the caller nor ProfileEnvVar
	// names a profile.
	DefaultProfile = "default"

	// ProfileEnvVar overrides the default profile name.
	ProfileEnvVar = "CONFIGDB_PROFILE"
	// PathEnvVar overrides the default config path.
	PathEnvVar = "CONFIGDB_CONFIG_PATH"
)

// DefaultRequired is the required key set used when neither the Request nor
// WithRequired supplies one.
var DefaultRequired = []string{"dbname", "user", "pwd"}

// LookupEnvFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupEnvFunc func(key string) (string, bool)

// Request selects what a Resolve call reads.
//
// Empty ConfigFile and Profile fall back to the environment and then to the
// built-in defaults. A nil Required uses the Resolver's default set; a
// non-nil empty slice requires nothing.
type Request struct {
	ConfigFile string
	Profile    string
	Required   []string
}

// Resolver loads a profile from a config file and checks that every required
// key is set.
//
// A Resolver keeps no state between calls: each Resolve re-reads the file. It
// is safe for concurrent use. When several processes bootstrap the same
// missing file at once, the last writer wins.
type Resolver struct {
	store     DocumentStore
	lookupEnv LookupEnvFunc
	streams   streams.IOStreams
	required  []string
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// New constructs a Resolver. Without options it reads files through
// FileStore, the process environment through os.LookupEnv, requires
// DefaultRequired and prints nothing.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = FileStore{}
	}
	if r.lookupEnv == nil {
		r.lookupEnv = os.LookupEnv
	}
	if r.required == nil {
		r.required = DefaultRequired
	}
	return r
}

// WithStore replaces the FileStore. Panics if store is nil.
func WithStore(store DocumentStore) Option {
	return func(r *Resolver) {
		if store == nil {
			panic("configdb: WithStore: store cannot be nil")
		}
		r.store = store
	}
}

// WithLookupEnv replaces os.LookupEnv for every environment read the
// Resolver performs. Panics if fn is nil.
func WithLookupEnv(fn LookupEnvFunc) Option {
	return func(r *Resolver) {
		if fn == nil {
			panic("configdb: WithLookupEnv: fn cannot be nil")
		}
		r.lookupEnv = fn
	}
}

// WithStreams routes "created template" and "loaded profile" notices to s.
// Use the companion streams package for stdout, buffers, slog or apex/log.
func WithStreams(s streams.IOStreams) Option {
	return func(r *Resolver) {
		r.streams = s
	}
}

// WithRequired sets the required keys used when a Request leaves Required nil.
func WithRequired(keys ...string) Option {
	return func(r *Resolver) {
		r.required = append([]string{}, keys...)
	}
}

// Resolve resolves req with a default Resolver.
func Resolve(req Request) (Profile, error) {
	return New().Resolve(req)
}

// Resolve loads the config file, selects the requested profile and checks its
// required keys.
//
// A missing file is replaced by a template holding a "default" profile with
// every required key unset, and a *MissingValueError with Created set is
// returned. A profile absent from the file yields a *BadProfileError. Absent
// or unset required keys yield a *MissingValueError listing all of them; the
// file is left untouched.
func (r *Resolver) Resolve(req Request) (Profile, error) {
	path := r.ConfigPath(req)
	profile := r.ProfileName(req)
	required := req.Required
	if required == nil {
		required = r.required
	}

	doc, err := r.store.Load(path)
	switch {
	case err != nil && errors.Is(err, fs.ErrNotExist):
		return nil, r.bootstrap(path, required)
	case err != nil:
		return nil, err
	}

	data, ok := doc[profile]
	if !ok {
		return nil, &BadProfileError{Profile: profile, Path: path, Available: doc.Names()}
	}
	if data == nil {
		// A profile written as "name:" with no body.
		data = Profile{}
	}
	if missing := data.Missing(required); len(missing) > 0 {
		r.warnf("configdb: profile '%s' in %s is missing: %v\n", profile, path, missing)
		return nil, &MissingValueError{Path: path, Keys: missing}
	}
	r.infof("configdb: loaded profile '%s' from %s\n", profile, path)
	return data, nil
}

func (r *Resolver) bootstrap(path string, required []string) error {
	if err := r.store.Dump(Template(required), path); err != nil {
		return err
	}
	r.infof("configdb: created template config at %s\n", path)
	return &MissingValueError{
		Path:    path,
		Keys:    Profile{}.Missing(required),
		Created: true,
	}
}

// ConfigPath returns the file req reads: req.ConfigFile, else PathEnvVar,
// else DefaultConfigPath.
func (r *Resolver) ConfigPath(req Request) string {
	if req.ConfigFile != "" {
		return req.ConfigFile
	}
	if p, ok := r.lookupEnv(PathEnvVar); ok && p != "" {
		return p
	}
	return r.DefaultConfigPath()
}

// ProfileName returns the profile req selects: req.Profile, else
// ProfileEnvVar, else DefaultProfile.
func (r *Resolver) ProfileName(req Request) string {
	if req.Profile != "" {
		return req.Profile
	}
	if p, ok := r.lookupEnv(ProfileEnvVar); ok && p != "" {
		return p
	}
	return DefaultProfile
}

// DefaultConfigPath is DefaultConfigPath with the Resolver's environment.
func (r *Resolver) DefaultConfigPath() string {
	return defaultConfigPath(r.lookupEnv)
}

// DefaultConfigPath returns <HOME>/.config/configdb/1.0/configdb.yaml. HOME
// falls back to USERPROFILE when empty. It performs no I/O.
func DefaultConfigPath() string {
	return defaultConfigPath(os.LookupEnv)
}

func defaultConfigPath(lookupEnv LookupEnvFunc) string {
	home, _ := lookupEnv("HOME")
	if home == "" {
		home, _ = lookupEnv("USERPROFILE")
	}
	return filepath.Join(home, ".config", AppNamespace, Version, FileName)
}

func (r *Resolver) infof(format string, args ...any) {
	if r.streams != nil && r.streams.Out() != nil {
		fmt.Fprintf(r.streams.Out(), format, args...)
	}
}

func (r *Resolver) warnf(format string, args ...any) {
	if r.streams != nil && r.streams.ErrOut() != nil {
		fmt.Fprintf(r.streams.ErrOut(), format, args...)
	}
}
