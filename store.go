package configdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

var (
	ErrInaccessiblePath        = errors.New("inaccessible path")
	ErrCannotCreateDirectories = errors.New("cannot create directories")
)

// DocumentStore reads and writes configuration documents.
//
// Load must return an error satisfying errors.Is(err, fs.ErrNotExist) when
// path does not exist; the Resolver relies on it to decide when to write a
// template. Dump must create missing parent directories.
type DocumentStore interface {
	Load(path string) (Document, error)
	Dump(doc Document, path string) error
}

// FileStore is the default DocumentStore. It picks the format from the file
// extension: .json is JSON (comments and trailing commas are accepted on
// read), .yaml, .yml or no extension is YAML.
type FileStore struct{}

type format int

const (
	formatYAML format = iota
	formatJSON
)

func formatOf(path string) (format, error) {
	switch ext := filepath.Ext(path); ext {
	case "", ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedConfigFileType, ext)
	}
}

// Load reads and parses the document at path.
func (FileStore) Load(path string) (Document, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	switch f {
	case formatJSON:
		// Numbers stay json.Number so large integers keep every digit.
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.UseNumber()
		err = dec.Decode(&doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, path, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Dump writes doc to path, creating parent directories first. The file is
// written to a temporary sibling and renamed into place.
func (FileStore) Dump(doc Document, path string) error {
	if err := EnsurePath(path); err != nil {
		return errors.Join(ErrEnsureConfigDir, err)
	}
	return writeToFile(path, doc)
}

// EnsurePath ensures the directories for a file path exist and the path
// does not already exist as a directory.
func EnsurePath(p string) error {
	info, err := os.Stat(p)
	switch {
	case err == nil:
		if info.IsDir() {
			return ErrInaccessiblePath
		}
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return ErrInaccessiblePath
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return ErrCannotCreateDirectories
	}
	return nil
}

func marshal(f format, v any) (data []byte, err error) {
	// yaml panics on kinds it cannot encode, e.g. funcs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	if f == formatJSON {
		return json.MarshalIndent(v, "", "  ")
	}
	return yaml.Marshal(v)
}

func writeToFile(path string, v any) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := marshal(f, v)
	if err != nil {
		return fmt.Errorf("%w as %s: %w", ErrFormat, filepath.Ext(path), err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "temp-configdb-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrWrite, err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("%w: rename temp file to %s: %w", ErrWrite, path, err)
	}
	return nil
}
