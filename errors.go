package configdb

import (
	"errors"
	"fmt"
	"strings"
)

// Exported error categories returned by this package. Use errors.Is to detect
// them; the two domain failures also have typed forms for errors.As.
//   - ErrMissingValue: the config file was missing, or required keys are absent or unset.
//   - ErrBadProfile: the requested profile is not in the config file.
//   - ErrEnsureConfigDir: failure to create parent directories for a config file.
//   - ErrUnsupportedConfigFileType: file extension is neither .yaml/.yml nor .json.
//   - ErrParse: failure to parse an existing config file.
//   - ErrFormat: failure to marshal a document to bytes.
//   - ErrWrite: failure to write the config file to disk.
var (
	ErrMissingValue              = errors.New("missing config value")
	ErrBadProfile                = errors.New("bad config profile")
	ErrEnsureConfigDir           = errors.New("ensure config dir")
	ErrUnsupportedConfigFileType = errors.New("unsupported config file type")
	ErrParse                     = errors.New("parse config file")
	ErrFormat                    = errors.New("format config")
	ErrWrite                     = errors.New("write to config file")
)

// MissingValueError reports an incomplete configuration. Created is true when
// the file did not exist and a template holding Keys was written at Path.
type MissingValueError struct {
	Path    string
	Keys    []string
	Created bool
}

func (e *MissingValueError) Error() string {
	if e.Created {
		return fmt.Sprintf("config file '%s' did not exist; a template was created, fill in: %s",
			e.Path, strings.Join(e.Keys, ", "))
	}
	return fmt.Sprintf("missing required values in '%s': %s", e.Path, strings.Join(e.Keys, ", "))
}

func (e *MissingValueError) Is(target error) bool { return target == ErrMissingValue }

// BadProfileError reports a profile name absent from the config file.
// Available is sorted.
type BadProfileError struct {
	Profile   string
	Path      string
	Available []string
}

// Error keeps the historical wording, typo included; existing consumers match on it.
func (e *BadProfileError) Error() string {
	return fmt.Sprintf("Database profile '%s' not availabe in '%s', try with: %s",
		e.Profile, e.Path, strings.Join(e.Available, ", "))
}

func (e *BadProfileError) Is(target error) bool { return target == ErrBadProfile }
