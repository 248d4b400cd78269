package configdb

import (
	"context"
	"fmt"
	"reflect"

	modellib "github.com/ygrebnov/model"
	"gopkg.in/yaml.v3"
)

// ModelInit binds a model.Model[T] to the *T that Bind fills. Bind calls
// SetDefaults() before decoding the profile and Validate(ctx) after
// environment overrides. Built-in rules apply to `validate` tags.
type ModelInit[T any] func(*T) (*modellib.Model[T], error)

type binder[T any] struct {
	defaultFn func() *T
	envPrefix string
	modelInit ModelInit[T]
}

// BindOption configures a Bind call.
type BindOption[T any] func(*binder[T])

// WithDefaultFn registers a factory for the *T that Bind fills. Values it sets
// survive unless the profile or the environment overrides them. Panics if fn
// is nil.
func WithDefaultFn[T any](fn func() *T) BindOption[T] {
	return func(b *binder[T]) {
		if fn == nil {
			panic("configdb: WithDefaultFn: fn cannot be nil")
		}
		b.defaultFn = fn
	}
}

// WithEnvPrefix enables environment overrides named ${PREFIX}_${FIELD}, with
// FIELD taken from `env` struct tags or the field name in SCREAMING_SNAKE_CASE.
// Panics if prefix is empty.
func WithEnvPrefix[T any](prefix string) BindOption[T] {
	return func(b *binder[T]) {
		if prefix == "" {
			panic("configdb: WithEnvPrefix: prefix cannot be empty")
		}
		b.envPrefix = prefix
	}
}

// WithModel enables defaults (`default` tags) and validation (`validate`
// tags) through github.com/ygrebnov/model. Panics if init is nil.
func WithModel[T any](init ModelInit[T]) BindOption[T] {
	return func(b *binder[T]) {
		if init == nil {
			panic("configdb: WithModel: init cannot be nil")
		}
		b.modelInit = init
	}
}

// Bind resolves req with r and decodes the resulting profile into a new *T
// using its `yaml` struct tags.
//
// Order of precedence, lowest first: the WithDefaultFn factory, model
// defaults, profile values, environment overrides. Resolve errors are returned
// unchanged, so errors.Is(err, ErrMissingValue) still works on the result.
// ctx is only used for model validation.
func Bind[T any](ctx context.Context, r *Resolver, req Request, opts ...BindOption[T]) (*T, error) {
	b := &binder[T]{}
	for _, opt := range opts {
		opt(b)
	}

	var cfg *T
	if b.defaultFn != nil {
		cfg = b.defaultFn()
	} else {
		cfg = new(T)
	}

	var mdl *modellib.Model[T]
	if b.modelInit != nil {
		var err error
		if mdl, err = b.modelInit(cfg); err != nil {
			return nil, err
		}
		if mdl != nil {
			if err := mdl.SetDefaults(); err != nil {
				return nil, err
			}
		}
	}

	profile, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}
	if err := decodeProfile(profile, cfg); err != nil {
		return nil, fmt.Errorf("decode profile '%s': %w", r.ProfileName(req), err)
	}

	if b.envPrefix != "" {
		envOverlay{lookup: r.lookupEnv, prefix: b.envPrefix}.apply(reflect.ValueOf(cfg), nil)
	}

	if mdl != nil {
		if err := mdl.Validate(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// decodeProfile copies p into out by round-tripping through YAML, which lets
// `yaml` tags and scalar conversions apply.
func decodeProfile(p Profile, out any) error {
	data, err := yaml.Marshal(map[string]any(p))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
