package tabledefinition

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	om "github.com/cevaris/ordered_map"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/totes/constants"
)

// UnknownTableError is returned for a CSV file or table name with no descriptor.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("no table descriptor found for %q", e.Table)
}

// DescriptorFile is the layout of a descriptor override file.
//   tables:
//     - name: dim_staff
//       columns: [staff_id, first_name]
//       keyColumn: staff_id
type DescriptorFile struct {
	Tables []TableDescriptor `json:"tables"`
}

// Registry holds table descriptors by name.
type Registry struct {
	mu     sync.RWMutex
	tables *om.OrderedMap // key = table name; value = *TableDescriptor
}

// NewRegistry returns a Registry of the built-in star schema tables.
func NewRegistry() *Registry {
	r := &Registry{tables: om.NewOrderedMap()}
	for idx := range builtInDescriptors {
		d := builtInDescriptors[idx]
		d.Columns = append([]string(nil), d.Columns...)
		r.tables.Set(d.Name, &d)
	}
	return r
}

// NewRegistryFromFile returns the built-in registry with the descriptors in fileName applied on top.
// An empty fileName returns the built-in registry.
func NewRegistryFromFile(fileName string) (*Registry, error) {
	r := NewRegistry()
	if fileName == "" {
		return r, nil
	}
	if err := r.LoadFile(fileName); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the descriptor for table name.
func (r *Registry) Get(name string) (*TableDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.tables.Get(name)
	if !ok {
		return nil, &UnknownTableError{Table: name}
	}
	return v.(*TableDescriptor), nil
}

// GetByFileName returns the descriptor for a batch file name such as dim_staff.csv.
func (r *Registry) GetByFileName(fileName string) (*TableDescriptor, error) {
	return r.Get(strings.TrimSuffix(fileName, constants.BatchFileExtension))
}

// Set adds or replaces a descriptor after validating it.
func (r *Registry) Set(d TableDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables.Set(d.Name, &d)
	return nil
}

// LoadFile reads a YAML descriptor file and adds or replaces the tables it names.
func (r *Registry) LoadFile(fileName string) error {
	b, err := ioutil.ReadFile(fileName)
	if err != nil {
		return errors.Wrapf(err, "error reading table descriptor file %q", fileName)
	}
	return r.LoadYAML(b)
}

// LoadYAML adds or replaces the tables found in YAML document b.
func (r *Registry) LoadYAML(b []byte) error {
	f := DescriptorFile{}
	if err := yaml.Unmarshal(b, &f); err != nil {
		return errors.Wrap(err, "error parsing table descriptors")
	}
	for _, d := range f.Tables {
		if err := r.Set(d); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the table names in load order: lowest LoadOrder first, then by name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*TableDescriptor, 0, r.tables.Len())
	iter := r.tables.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		all = append(all, kv.Value.(*TableDescriptor))
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].LoadOrder != all[j].LoadOrder {
			return all[i].LoadOrder < all[j].LoadOrder
		}
		return all[i].Name < all[j].Name
	})
	retval := make([]string, len(all))
	for i, d := range all {
		retval[i] = d.Name
	}
	return retval
}

// SortFileNames orders batch file names by the load order of their tables.
// Files with no descriptor sort last so that the loader reports them after the known tables are applied.
func (r *Registry) SortFileNames(fileNames []string) []string {
	pos := make(map[string]int)
	for i, n := range r.Names() {
		pos[n+constants.BatchFileExtension] = i
	}
	retval := append([]string(nil), fileNames...)
	sort.SliceStable(retval, func(i, j int) bool {
		pi, oki := pos[retval[i]]
		pj, okj := pos[retval[j]]
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		default:
			return retval[i] < retval[j]
		}
	})
	return retval
}
