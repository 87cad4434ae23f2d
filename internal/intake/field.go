package intake

// FieldType tags the kind of input a Field accepts.
type FieldType string

const (
	FieldText            FieldType = "text"
	FieldNumber          FieldType = "number"
	FieldRadio           FieldType = "radio"
	FieldCheckbox        FieldType = "checkbox"
	FieldMonitoringTable FieldType = "monitoring_table"
	FieldTextarea        FieldType = "textarea"
)

// Condition is a visibility predicate evaluated against the current value bag.
// A field whose condition returns false is hidden and exempt from validation.
type Condition func(Bag) bool

// Field describes a single form input. Field definitions are immutable
// configuration; the engine only ever reads them.
type Field struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Type      FieldType `json:"type"`
	Options   []string  `json:"options,omitempty"`
	Required  bool      `json:"required"`
	HelpText  string    `json:"help_text,omitempty"`
	Condition Condition `json:"-"`
}

// Visible reports whether the field should be shown (and validated) for the
// given bag. A field with no condition is always visible.
func (f Field) Visible(bag Bag) bool {
	if f.Condition == nil {
		return true
	}
	return f.Condition(bag)
}

// Section is an ordered group of fields with a title. The ordered sequence of
// sections is the form's step sequence.
type Section struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}
