package filter

// FieldType enumerates the value types an index field can hold.
type FieldType int

// Field types. Collection types hold zero or more values of the element
// type; Complex fields hold sub-objects addressed with '/' paths.
const (
	TypeString FieldType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeDatetime
	TypeGeoPoint
	TypeComplex
	TypeStringCollection
	TypeComplexCollection
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDatetime:
		return "datetime"
	case TypeGeoPoint:
		return "geopoint"
	case TypeComplex:
		return "complex"
	case TypeStringCollection:
		return "collection(string)"
	case TypeComplexCollection:
		return "collection(complex)"
	}
	return "unknown"
}

// IsCollection reports whether the type holds multiple values.
func (t FieldType) IsCollection() bool {
	return t == TypeStringCollection || t == TypeComplexCollection
}

// Field describes one field of an index schema.
type Field struct {
	// Name is the field name. Sub-object fields are addressed through the
	// parent's Fields list, not with slashes here.
	Name string

	// Type is the field's value type.
	Type FieldType

	// Filterable allows the field in filter expressions.
	Filterable bool

	// Sortable allows the field in orderby clauses.
	Sortable bool

	// Facetable allows the field in facet requests.
	Facetable bool

	// Searchable includes the field in full-text matching.
	Searchable bool

	// Fields lists sub-fields for Complex and ComplexCollection types.
	Fields []Field
}

// Schema describes the fields of a search index.
type Schema struct {
	Fields []Field
}

// Field looks up a top-level field by name.
func (s *Schema) Field(name string) (Field, bool) {
	return lookupField(s.Fields, name)
}

// Resolve follows a field path through complex types and returns the leaf
// field. For a path into a complex collection ("rooms/baseRate"), the leaf
// is the sub-field.
func (s *Schema) Resolve(path FieldPath) (Field, bool) {
	fields := s.Fields
	var f Field
	for i, seg := range path {
		var ok bool
		f, ok = lookupField(fields, seg)
		if !ok {
			return Field{}, false
		}
		if i < len(path)-1 {
			if f.Type != TypeComplex && f.Type != TypeComplexCollection {
				return Field{}, false
			}
			fields = f.Fields
		}
	}
	return f, true
}

// SearchableFields returns the names of top-level searchable fields.
func (s *Schema) SearchableFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Searchable {
			names = append(names, f.Name)
		}
	}
	return names
}

func lookupField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
