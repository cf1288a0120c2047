package metadata

// FieldType enumerates the declarable attribute types.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeEmail     FieldType = "email"
	TypeNumber    FieldType = "number"
	TypeFloat     FieldType = "float"
	TypeBoolean   FieldType = "boolean"
	TypeTelephone FieldType = "telephone"
	TypeDate      FieldType = "date"
	TypeDatetime  FieldType = "datetime"
	TypeSelect    FieldType = "select"
	TypePassword  FieldType = "password"
	TypeImage     FieldType = "image"
	TypeFile      FieldType = "file"
)

// Field describes one entity attribute: how it is stored, where it is
// shown, how it validates and, optionally, the relation it references.
type Field struct {
	Name     string         `json:"name"`  // display label
	Field    string         `json:"field"` // storage key (column)
	Type     FieldType      `json:"type"`
	Table    bool           `json:"table"` // visible in table listings
	Form     bool           `json:"form"`  // editable in forms
	Options  []string       `json:"options,omitempty"`  // allowed values for select
	Multiple bool           `json:"multiple,omitempty"` // select stores a delimited set
	Public   bool           `json:"public,omitempty"`   // file/image: skip at-rest encryption
	Rules    FieldRules     `json:"rules,omitempty"`
	Relation *FieldRelation `json:"relation,omitempty"`
}

// FieldRules are the declared validation flags for a field.
type FieldRules struct {
	Required bool     `json:"required,omitempty"`
	Unique   bool     `json:"unique,omitempty"`
	Min      int      `json:"min,omitempty"`
	Max      int      `json:"max,omitempty"`   // max upload size in KB for file/image
	Mimes    []string `json:"mimes,omitempty"` // allowed mime types for file/image
	Custom   []string `json:"custom,omitempty"`
}

// FieldRelation ties a field to a declared relation. TableKey and FormKey are
// label templates (see engine.ParseTemplate) rendered against the related row.
type FieldRelation struct {
	Entity        string `json:"entity"`   // related entity name
	Name          string `json:"relation"` // relation name on the owning entity
	TableKey      string `json:"table_key,omitempty"`
	FormKey       string `json:"form_key,omitempty"`
	Polymorphic   bool   `json:"polymorphic,omitempty"`
	MorphType     string `json:"morph_type,omitempty"` // column holding the target kind
	StoreShortcut bool   `json:"store_shortcut,omitempty"`
}

// IsFile reports whether the field stores an uploaded artifact.
func (f Field) IsFile() bool {
	return f.Type == TypeImage || f.Type == TypeFile
}

// IsTemporal reports whether the field holds a date or datetime value.
func (f Field) IsTemporal() bool {
	return f.Type == TypeDate || f.Type == TypeDatetime
}
