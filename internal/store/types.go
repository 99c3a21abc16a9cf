package store

import "time"

// PropertyKind tags the variant held by a PropertyValue.
type PropertyKind string

const (
	PropString  PropertyKind = "string"
	PropNumber  PropertyKind = "number"
	PropBoolean PropertyKind = "boolean"
	PropArray   PropertyKind = "array"
	PropObject  PropertyKind = "object"
	PropClassRef PropertyKind = "class_ref"
)

// PropertyValue is the tagged sum described in spec.md §3: a class property
// value is exactly one of String, Number, Boolean, Array, Object, or
// ClassRef. Only the field matching Kind is meaningful; the others are
// zero-valued. See properties.go for the JSON encoding used in the
// classes.properties_blob column.
type PropertyValue struct {
	Kind PropertyKind

	Str   string
	Num   float64
	Bool  bool
	Arr   []PropertyValue
	Obj   map[string]PropertyValue
	Ref   string // class name for PropClassRef
}

// StringValue constructs a String PropertyValue.
func StringValue(s string) PropertyValue { return PropertyValue{Kind: PropString, Str: s} }

// NumberValue constructs a Number PropertyValue.
func NumberValue(n float64) PropertyValue { return PropertyValue{Kind: PropNumber, Num: n} }

// BoolValue constructs a Boolean PropertyValue.
func BoolValue(b bool) PropertyValue { return PropertyValue{Kind: PropBoolean, Bool: b} }

// ArrayValue constructs an Array PropertyValue.
func ArrayValue(items []PropertyValue) PropertyValue {
	return PropertyValue{Kind: PropArray, Arr: items}
}

// ObjectValue constructs an Object PropertyValue — a nested class's property
// set, without the nested class's own parent_id (spec.md §3).
func ObjectValue(fields map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: PropObject, Obj: fields}
}

// ClassRefValue constructs a ClassRef PropertyValue.
func ClassRefValue(name string) PropertyValue { return PropertyValue{Kind: PropClassRef, Ref: name} }

// Properties is an ordered mapping of property_name -> PropertyValue.
// Order is preserved via Keys so re-serialization is deterministic, which
// matters for the manifest/store round-trip idempotence law in spec.md §8.
type Properties struct {
	Keys   []string
	Values map[string]PropertyValue
}

// NewProperties returns an empty, ready-to-use Properties.
func NewProperties() *Properties {
	return &Properties{Values: make(map[string]PropertyValue)}
}

// Set inserts or overwrites a property, preserving first-insertion order.
func (p *Properties) Set(name string, v PropertyValue) {
	if _, exists := p.Values[name]; !exists {
		p.Keys = append(p.Keys, name)
	}
	p.Values[name] = v
}

// Get returns the value for name and whether it was present.
func (p *Properties) Get(name string) (PropertyValue, bool) {
	v, ok := p.Values[name]
	return v, ok
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Keys)
}

// Class is a row of the classes table (spec.md §3).
type Class struct {
	ID                   string // declared name, case-sensitive
	ParentID             *string
	ContainerID          *string
	SourceFileIndex      *int64
	IsForwardDeclaration bool
	Properties           *Properties
}

// FileIndexMapping is a row of the file_index_mapping table (spec.md §3).
type FileIndexMapping struct {
	FileIndex      int64
	FilePath       string
	NormalizedPath string
	PboID          *string
}

// Mission is a row of the missions table (spec.md §3).
type Mission struct {
	ID         string
	Name       string
	SourcePath string
	ScannedAt  time.Time
}

// MissionComponent is a row of the mission_components table (spec.md §3).
type MissionComponent struct {
	MissionID    string
	ComponentID  string
	Kind         string
	RelativePath string
}

// ReferenceKind enumerates how a mission dependency was reached (spec.md §3).
type ReferenceKind string

const (
	RefDirect      ReferenceKind = "Direct"
	RefInheritance ReferenceKind = "Inheritance"
	RefComponent   ReferenceKind = "Component"
	RefProperty    ReferenceKind = "Property"
)

// MissionDependency is a row of the mission_dependencies table (spec.md §3).
type MissionDependency struct {
	ID                   int64
	MissionID            string
	ClassName            string
	ReferenceKind        ReferenceKind
	SourceFileRelative   string
	LineNumber           *int
}
