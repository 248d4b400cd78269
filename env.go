package configdb

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

const envVarTagName = "env"

var durationType = reflect.TypeOf(time.Duration(0))

// envOverlay applies environment overrides to struct fields. Variable names
// are the prefix followed by one segment per nesting level, each taken from
// the `env` tag or the field name in SCREAMING_SNAKE_CASE.
type envOverlay struct {
	lookup LookupEnvFunc
	prefix string
}

// apply walks v and reports whether any field was set.
func (o envOverlay) apply(v reflect.Value, segments []string) bool {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return false
	}
	applied := false
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		seg := sf.Tag.Get(envVarTagName)
		if seg == "-" {
			continue
		}
		if seg == "" {
			seg = toScreamingSnake(sf.Name)
		}
		path := append(append([]string{}, segments...), seg)
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct:
			applied = o.apply(field, path) || applied
		case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				applied = o.apply(field, path) || applied
				continue
			}
			// Allocate only when a nested variable is actually set.
			tmp := reflect.New(field.Type().Elem())
			if o.apply(tmp, path) {
				field.Set(tmp)
				applied = true
			}
		case field.Kind() == reflect.Pointer:
			tmp := reflect.New(field.Type().Elem())
			if o.setScalar(tmp.Elem(), path) {
				field.Set(tmp)
				applied = true
			}
		default:
			applied = o.setScalar(field, path) || applied
		}
	}
	return applied
}

// setScalar parses the variable for path into field. Unset or unparseable
// variables leave field unchanged.
func (o envOverlay) setScalar(field reflect.Value, path []string) bool {
	raw, ok := o.lookup(buildEnvName(o.prefix, path))
	if !ok {
		return false
	}
	s := strings.TrimSpace(raw)
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(s)
			if err != nil {
				return false
			}
			field.SetInt(int64(d))
			return true
		}
		n, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return false
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, field.Type().Bits())
		if err != nil {
			return false
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, field.Type().Bits())
		if err != nil {
			return false
		}
		field.SetFloat(f)
	default:
		return false
	}
	return true
}

func buildEnvName(prefix string, segments []string) string {
	switch {
	case prefix == "" && len(segments) == 0:
		return ""
	case prefix == "":
		return strings.Join(segments, "_")
	case len(segments) == 0:
		return prefix
	default:
		return prefix + "_" + strings.Join(segments, "_")
	}
}

// toScreamingSnake converts a Go field name to SCREAMING_SNAKE_CASE, splitting
// only on lower to upper transitions: DBName -> DBNAME, ApiKey2FA -> API_KEY2FA.
func toScreamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && s[i-1] >= 'a' && s[i-1] <= 'z' && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
