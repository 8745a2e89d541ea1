// Package plistdoc provides scoped read-modify-write access to property list
// files such as the system NAT preferences.
//
// Edit loads the file (or an empty dictionary when it does not exist), hands
// the decoded tree to a callback for in-place mutation, and writes the tree
// back on every exit path of the callback, including errors and panics.
// The write is a plain truncate-and-write; it is not atomic.
package plistdoc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/multierr"
	"howett.net/plist"
)

// Document is the decoded root dictionary of a property list. Values are the
// generic plist types: map[string]any, []any, string, bool, uint64, int64,
// float64, []byte and time.Time.
type Document map[string]any

// ErrNotDictionary is returned when a property list's root is not a dictionary.
var ErrNotDictionary = errors.New("property list root is not a dictionary")

const newFileMode fs.FileMode = 0o644

// Edit opens path for a read-modify-write session. A malformed file aborts
// before fn runs and nothing is written. Once loaded, the document is written
// back whatever fn does; errors from fn and from the write are combined.
func Edit(path string, fn func(doc Document) error) (err error) {
	doc, format, mode, err := load(path)
	if err != nil {
		return err
	}

	defer func() {
		recovered := recover()
		multierr.AppendInto(&err, commit(path, doc, format, mode))
		if recovered != nil {
			panic(recovered)
		}
	}()

	return fn(doc)
}

// Load reads a property list without holding it open for writing.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, _, err := decode(path, data)
	return doc, err
}

func load(path string) (Document, int, fs.FileMode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, plist.XMLFormat, newFileMode, nil
		}
		return nil, 0, 0, err
	}

	mode := newFileMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	doc, format, err := decode(path, data)
	if err != nil {
		return nil, 0, 0, err
	}
	return doc, format, mode, nil
}

func decode(path string, data []byte) (Document, int, error) {
	var root any
	format, err := plist.Unmarshal(data, &root)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	dict, ok := root.(map[string]any)
	if !ok {
		return nil, 0, fmt.Errorf("parse %s: %w", path, ErrNotDictionary)
	}
	return Document(dict), format, nil
}

func commit(path string, doc Document, format int, mode fs.FileMode) error {
	if format == plist.GNUStepFormat || format == plist.OpenStepFormat {
		// The system daemons only read XML and binary lists.
		format = plist.XMLFormat
	}
	data, err := plist.MarshalIndent(map[string]any(doc), format, "\t")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Dict returns the dictionary stored under key, if any.
func (d Document) Dict(key string) (map[string]any, bool) {
	return AsDict(d[key])
}

// AsDict converts a decoded value into a dictionary.
func AsDict(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case Document:
		return typed, true
	}
	return nil, false
}

// AsString converts a decoded value into a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsInt coerces the integer-ish plist values (integers of any width, bools,
// integral reals) into an int.
func AsInt(v any) (int, bool) {
	switch typed := v.(type) {
	case int:
		return typed, true
	case int8:
		return int(typed), true
	case int16:
		return int(typed), true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case uint:
		return int(typed), true
	case uint8:
		return int(typed), true
	case uint16:
		return int(typed), true
	case uint32:
		return int(typed), true
	case uint64:
		return int(typed), true
	case float64:
		if typed == float64(int(typed)) {
			return int(typed), true
		}
	case bool:
		if typed {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsStrings converts a decoded array into strings, skipping non-strings.
func AsStrings(v any) []string {
	switch typed := v.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
