package intake

import "fmt"

// Failure describes one unmet requirement found by Validate.
type Failure struct {
	Section string
	Field   string
	Message string
}

func (f Failure) String() string { return f.Message }

// Validate walks every section's fields in defined order and collects all
// unmet requirements. It is a pure function of the bag and the field
// configuration.
//
// A hidden field (condition false) is exempt. A required monitoring table
// fails unless all 42 glucose cells are non-blank; any other required field
// fails when its value is absent, an empty string, or an empty list.
func Validate(sections []Section, bag Bag) []Failure {
	var failures []Failure
	for _, sec := range sections {
		for _, f := range sec.Fields {
			if !f.Visible(bag) {
				continue
			}
			if !f.Required {
				continue
			}
			if f.Type == FieldMonitoringTable {
				if !GridComplete(bag) {
					failures = append(failures, Failure{
						Section: sec.Title,
						Field:   f.Label,
						Message: fmt.Sprintf("%s: %s - All readings required.", sec.Title, f.Label),
					})
				}
				continue
			}
			v, ok := bag[f.ID]
			if !ok || v.Blank() {
				failures = append(failures, Failure{
					Section: sec.Title,
					Field:   f.Label,
					Message: fmt.Sprintf("%s: %s", sec.Title, f.Label),
				})
			}
		}
	}
	return failures
}

// ValidationError carries the ordered failure list from a rejected submission.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return "validation failed"
	}
	return "missing required fields: " + e.Failures[0].Message
}
