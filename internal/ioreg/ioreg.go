// Package ioreg reads the IOKit service plane through the ioreg archive
// output (-a) and exposes it as a tree that can be walked in both directions.
package ioreg

import (
	"bytes"
	"fmt"

	"howett.net/plist"

	"tetherctl/internal/execx"
)

const (
	keyClass    = "IOObjectClass"
	keyName     = "IORegistryEntryName"
	keyChildren = "IORegistryEntryChildren"
	keyBSDName  = "BSD Name"
)

// Entry is a single registry object. Properties holds every key ioreg
// reported except the children array.
type Entry struct {
	Class      string
	Name       string
	Properties map[string]any
	Parent     *Entry
	Children   []*Entry
}

// ParentByClass returns the nearest ancestor of e whose class is class.
func (e *Entry) ParentByClass(class string) (*Entry, bool) {
	for p := e.Parent; p != nil; p = p.Parent {
		if p.Class == class {
			return p, true
		}
	}
	return nil, false
}

// StringProperty returns a string-valued property.
func (e *Entry) StringProperty(key string) (string, bool) {
	v, ok := e.Properties[key].(string)
	return v, ok
}

// HasProperty reports whether key is present at all, regardless of value.
func (e *Entry) HasProperty(key string) bool {
	_, ok := e.Properties[key]
	return ok
}

// Registry enumerates registry entries by class.
type Registry interface {
	ServicesByClass(class string) ([]*Entry, error)
}

// Tree is an in-memory registry snapshot.
type Tree struct {
	Roots []*Entry
}

// ServicesByClass walks the tree depth-first and returns every entry of class.
func (t *Tree) ServicesByClass(class string) ([]*Entry, error) {
	var out []*Entry
	var walk func(e *Entry)
	walk = func(e *Entry) {
		if e.Class == class {
			out = append(out, e)
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
	return out, nil
}

// Add attaches child under parent (or as a root when parent is nil) and
// returns child.
func (t *Tree) Add(parent, child *Entry) *Entry {
	child.Parent = parent
	if parent == nil {
		t.Roots = append(t.Roots, child)
	} else {
		parent.Children = append(parent.Children, child)
	}
	if child.Properties == nil {
		child.Properties = map[string]any{}
	}
	return child
}

// DefaultRootClass scopes the ioreg dump to USB devices, which are the
// topmost ancestors device discovery needs.
const DefaultRootClass = "IOUSBHostDevice"

// CommandRegistry reads a fresh snapshot from the ioreg binary on every call.
type CommandRegistry struct {
	r         execx.Runner
	path      string
	rootClass string
}

func NewCommandRegistry(r execx.Runner, ioregPath string) *CommandRegistry {
	if r == nil {
		r = execx.NewOSRunner()
	}
	if ioregPath == "" {
		ioregPath = "ioreg"
	}
	return &CommandRegistry{r: r, path: ioregPath, rootClass: DefaultRootClass}
}

func (c *CommandRegistry) ServicesByClass(class string) ([]*Entry, error) {
	tree, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	return tree.ServicesByClass(class)
}

// Snapshot runs ioreg and decodes its archive output.
func (c *CommandRegistry) Snapshot() (*Tree, error) {
	out, err := c.r.Output(c.path, "-a", "-l", "-w0", "-r", "-c", c.rootClass)
	if err != nil {
		return nil, err
	}
	return Decode([]byte(out))
}

// Decode builds a Tree from ioreg -a output. The archive root is either a
// single entry dictionary or, with -r, an array of them. Empty output means
// nothing matched.
func Decode(data []byte) (*Tree, error) {
	tree := &Tree{}
	if len(bytes.TrimSpace(data)) == 0 {
		return tree, nil
	}

	var root any
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode ioreg archive: %w", err)
	}

	switch typed := root.(type) {
	case map[string]any:
		tree.Add(nil, build(typed))
	case []any:
		for _, item := range typed {
			if dict, ok := item.(map[string]any); ok {
				tree.Add(nil, build(dict))
			}
		}
	default:
		return nil, fmt.Errorf("decode ioreg archive: unexpected root %T", root)
	}
	linkParents(tree.Roots, nil)
	return tree, nil
}

func build(dict map[string]any) *Entry {
	e := &Entry{Properties: make(map[string]any, len(dict))}
	for k, v := range dict {
		if k == keyChildren {
			continue
		}
		e.Properties[k] = v
	}
	e.Class, _ = dict[keyClass].(string)
	e.Name, _ = dict[keyName].(string)
	if e.Name == "" {
		e.Name, _ = dict[keyBSDName].(string)
	}
	if children, ok := dict[keyChildren].([]any); ok {
		for _, c := range children {
			if cd, ok := c.(map[string]any); ok {
				e.Children = append(e.Children, build(cd))
			}
		}
	}
	return e
}

func linkParents(entries []*Entry, parent *Entry) {
	for _, e := range entries {
		e.Parent = parent
		linkParents(e.Children, e)
	}
}
