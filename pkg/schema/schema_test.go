package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestDeclaredSets(t *testing.T) {
	if got := len(EntityTypes()); got != 17 {
		t.Fatalf("expected 17 entity types, got %d", got)
	}
	if got := len(RelationTypes()); got != 16 {
		t.Fatalf("expected 16 relation types, got %d", got)
	}
	for et := range Mapping() {
		if !IsEntityType(string(et)) {
			t.Errorf("mapping key %q is not a declared entity type", et)
		}
	}
}

// The stock ticker entry references "thuộc_về_ngành_công_nghiệp", which is not
// a declared relation type. The check must surface exactly that entry.
func TestCheck_ReportsKnownDefect(t *testing.T) {
	want := []Defect{
		{EntityType: StockTicker, Relation: BelongsToIndustry, Reason: "relation type not declared"},
	}
	got := Check()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Check() = %v, want %v", got, want)
	}
}

func TestCheckMapping_UnknownKey(t *testing.T) {
	got := checkMapping(map[EntityType][]RelationType{
		"cổ_tức": {Increases},
		Company:  {Owns},
	})
	if len(got) != 1 || got[0].EntityType != "cổ_tức" || got[0].Relation != "" {
		t.Fatalf("unexpected defects: %v", got)
	}
}

func TestMappingIsCopy(t *testing.T) {
	m := Mapping()
	m[Company][0] = "x"
	if AllowedRelations(Company)[0] != Owns {
		t.Fatalf("Mapping() must not expose internal state")
	}
}

func TestValidateTriplet(t *testing.T) {
	tests := []struct {
		name     string
		head     string
		relation string
		tail     string
		wantErr  error
	}{
		{"valid", string(Company), string(Owns), string(Project), nil},
		{"unknown head", "cổ_tức", string(Owns), string(Company), ErrUnknownEntityType},
		{"unknown tail", string(Company), string(Owns), "cổ_tức", ErrUnknownEntityType},
		{"undeclared relation", string(StockTicker), string(BelongsToIndustry), string(Industry), ErrUnknownRelationType},
		{"not permitted", string(Revenue), string(Increases), string(Company), ErrRelationNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTriplet(tt.head, tt.relation, tt.tail)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateTriplet() err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGloss(t *testing.T) {
	if Gloss(string(NetIncome)) != "net income" {
		t.Fatalf("unexpected gloss %q", Gloss(string(NetIncome)))
	}
	if Gloss("unknown") != "unknown" {
		t.Fatalf("unknown tags should gloss to themselves")
	}
}
