package intake

// DefaultSections returns the intake form used by the diabetes outcomes
// study: demographics, clinical history, current therapy, the 14-day glucose
// monitoring grid, and outcome notes.
func DefaultSections() []Section {
	return []Section{
		{
			Title: "Bio Data",
			Fields: []Field{
				{ID: SerialNumberField, Label: "Serial Number", Type: FieldText, Required: true,
					HelpText: "Study identifier assigned by your center."},
				{ID: AgeField, Label: "Age", Type: FieldNumber, Required: true},
				{ID: SexField, Label: "Sex", Type: FieldRadio, Options: []string{"M", "F"}, Required: true},
				{ID: CenterField, Label: "Research Center", Type: FieldText,
					HelpText: "Admins only: overrides the owning center."},
				{ID: "occupation", Label: "Occupation", Type: FieldText},
			},
		},
		{
			Title: "Medical History",
			Fields: []Field{
				{ID: "diabetesType", Label: "Diabetes Type", Type: FieldRadio,
					Options: []string{"Type 1", "Type 2", "Gestational"}, Required: true},
				{ID: "yearsSinceDiagnosis", Label: "Years Since Diagnosis", Type: FieldNumber, Required: true},
				{ID: "comorbidities", Label: "Comorbidities", Type: FieldCheckbox,
					Options: []string{"Hypertension", "Dyslipidemia", "Obesity", "CKD", "Retinopathy", "Neuropathy"}},
				{ID: "familyHistory", Label: "Family History of Diabetes", Type: FieldRadio,
					Options: []string{"Yes", "No"}, Required: true},
				{ID: "familyHistoryDetails", Label: "Family History Details", Type: FieldTextarea,
					Condition: func(bag Bag) bool { return bag.GetText("familyHistory") == "Yes" }},
			},
		},
		{
			Title: "Treatment",
			Fields: []Field{
				{ID: "therapy", Label: "Current Therapy", Type: FieldCheckbox,
					Options:  []string{"Diet only", "Metformin", "Sulfonylurea", "Insulin", "GLP-1 agonist", "SGLT2 inhibitor"},
					Required: true},
				{ID: "insulinUnitsPerDay", Label: "Insulin Units Per Day", Type: FieldNumber,
					Condition: func(bag Bag) bool {
						v, ok := bag.Get("therapy")
						if !ok || v.Kind != KindList {
							return false
						}
						for _, item := range v.List {
							if item == "Insulin" {
								return true
							}
						}
						return false
					}},
				{ID: "hba1c", Label: "Most Recent HbA1c (%)", Type: FieldNumber, Required: true},
			},
		},
		{
			Title: "Glucose Monitoring",
			Description: "Record all self-monitored readings for the 14-day observation window.",
			Fields: []Field{
				{ID: "glucoseMonitoring", Label: "14-Day Glucose Readings", Type: FieldMonitoringTable,
					Required: true, HelpText: "mg/dL, three readings per day."},
			},
		},
		{
			Title: "Outcomes",
			Fields: []Field{
				{ID: "hypoglycemicEpisodes", Label: "Hypoglycemic Episodes (past month)", Type: FieldNumber},
				{ID: "hospitalized", Label: "Hospitalized During Study Window", Type: FieldRadio,
					Options: []string{"Yes", "No"}, Required: true},
				{ID: "notes", Label: "Clinical Notes", Type: FieldTextarea},
			},
		},
	}
}
