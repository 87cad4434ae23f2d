package intake

import (
	"encoding/json"
	"testing"
)

// ── Values ──

func TestValueBlank(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"empty string", String(""), true},
		{"whitespace string", String("  \t "), true},
		{"text", String("x"), false},
		{"zero number", Number(0), false},
		{"number", Number(4.5), false},
		{"empty list", List(), true},
		{"list", List("a"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Blank(); got != tt.want {
				t.Errorf("Blank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueText(t *testing.T) {
	if got := List("Metformin", "Insulin").Text(); got != "Metformin; Insulin" {
		t.Errorf("list text = %q", got)
	}
	if got := Number(7.2).Text(); got != "7.2" {
		t.Errorf("float text = %q", got)
	}
	if got := Number(54).Text(); got != "54" {
		t.Errorf("integer text = %q", got)
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	bag := Bag{
		"serial":  String("NDP-1"),
		"age":     Number(47),
		"therapy": List("Metformin", "Insulin"),
	}
	data, err := json.Marshal(bag)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Bag
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["serial"].Kind != KindString || back["serial"].Str != "NDP-1" {
		t.Errorf("serial = %+v", back["serial"])
	}
	if back["age"].Kind != KindNumber || back["age"].Num != 47 {
		t.Errorf("age = %+v", back["age"])
	}
	v := back["therapy"]
	if v.Kind != KindList || len(v.List) != 2 || v.List[0] != "Metformin" {
		t.Errorf("therapy = %+v", v)
	}
}

func TestValueJSONNullBecomesEmptyString(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`null`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Kind != KindString || v.Str != "" {
		t.Errorf("null decoded to %+v", v)
	}
}

func TestBagClone(t *testing.T) {
	orig := Bag{"therapy": List("Metformin")}
	clone := orig.Clone()

	clone.Set("therapy", List("Insulin"))
	clone.Set("new", String("x"))
	if orig.GetText("therapy") != "Metformin" {
		t.Error("clone write leaked into original")
	}
	if _, ok := orig.Get("new"); ok {
		t.Error("clone key leaked into original")
	}

	// Mutating the cloned list's backing array must not alias.
	orig = Bag{"therapy": List("Metformin", "Insulin")}
	clone = orig.Clone()
	clone["therapy"].List[0] = "changed"
	if orig["therapy"].List[0] != "Metformin" {
		t.Error("list backing array aliased between clone and original")
	}
}

// ── Grid keys ──

func TestGridKeys(t *testing.T) {
	keys := GridKeys()
	if len(keys) != 42 {
		t.Fatalf("len = %d, want 42", len(keys))
	}
	if keys[0] != "glucose_day1_morning" {
		t.Errorf("first = %q", keys[0])
	}
	if keys[41] != "glucose_day14_night" {
		t.Errorf("last = %q", keys[41])
	}
	// Day-major, slot-minor order.
	if keys[1] != "glucose_day1_afternoon" || keys[3] != "glucose_day2_morning" {
		t.Errorf("order = %v", keys[:4])
	}
}

func TestGridCompleteness(t *testing.T) {
	bag := Bag{}
	if GridComplete(bag) {
		t.Error("empty grid reported complete")
	}
	for _, key := range GridKeys() {
		bag[key] = String("100")
	}
	if !GridComplete(bag) {
		t.Error("full grid reported incomplete")
	}
	if GridFilled(bag) != 42 {
		t.Errorf("filled = %d", GridFilled(bag))
	}

	// One blank cell breaks completeness: 41 of 42 is not enough.
	bag[GlucoseKey(3, SlotNight)] = String("")
	if GridComplete(bag) {
		t.Error("grid with a blank cell reported complete")
	}
	if GridFilled(bag) != 41 {
		t.Errorf("filled = %d, want 41", GridFilled(bag))
	}
}
