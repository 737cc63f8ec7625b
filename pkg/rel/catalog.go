package rel

import (
	"sort"
	"sync"
)

// SchemaProvider resolves source table names to schemas. Implementations
// must return SourceNotFoundError for names they do not know.
type SchemaProvider interface {
	// TableSchema returns the schema of the named source table.
	TableSchema(name string) (Schema, error)

	// Tables returns the known table names, sorted.
	Tables() []string
}

// Catalog is an in-memory SchemaProvider. It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]Schema
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]Schema)}
}

// Add registers a table schema, replacing any previous entry of that name.
func (c *Catalog) Add(name string, schema Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = schema
}

// TableSchema returns the schema of the named table.
func (c *Catalog) TableSchema(name string) (Schema, error) {
	c.mu.RLock()
	schema, ok := c.tables[name]
	c.mu.RUnlock()
	if !ok {
		return Schema{}, &SourceNotFoundError{Name: name, Available: c.Tables()}
	}
	return schema, nil
}

// Tables returns the catalog's table names, sorted.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table resolves a name through the catalog and returns a leaf relation
// over its schema.
func (c *Catalog) Table(name string) (Table, error) {
	schema, err := c.TableSchema(name)
	if err != nil {
		return Table{}, err
	}
	return NewTable(name, schema)
}
