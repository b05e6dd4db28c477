package config

import (
	"errors"
	"testing"

	"github.com/spf13/viper"

	"github.com/solatis/fieldcomp/internal/types"
)

const definitionsYAML = `
csv:
  data:
    combine:
      name: FULL_NAME,NAME_AGE
      fields: "FIRST.LAST,NAME.', '.AGE"
      separator: " "
      start.separator: "["
      end.separator: "]"
    composite:
      name:
        - NAME_AGE
        - COMP_*
      fields:
        - NAME.AGE
        - PART_*
      grouping.policy: [same_group_only, IGNORE_GROUPS]
      allow.missing: true
      ignore.normalization.on.fields: NAME, AGE
json:
  data:
    composite:
      name: ID_PAIR
      fields: A.B
`

func findDefinition(defs []types.DefinitionConfig, datatype, mode, target string) (types.DefinitionConfig, bool) {
	for _, d := range defs {
		if d.Datatype == datatype && d.Mode == mode && d.Target == target {
			return d, true
		}
	}
	return types.DefinitionConfig{}, false
}

func TestLoadConfig_Definitions(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, definitionsYAML))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}
	if len(cfg.Definitions) != 5 {
		t.Fatalf("len(Definitions) = %d, want 5: %+v", len(cfg.Definitions), cfg.Definitions)
	}

	full, ok := findDefinition(cfg.Definitions, "csv", types.ModeVirtual, "FULL_NAME")
	if !ok {
		t.Fatal("virtual FULL_NAME not loaded")
	}
	if full.Members != "FIRST.LAST" || full.Separator != " " {
		t.Errorf("FULL_NAME = %+v, want FIRST.LAST with space separator", full)
	}
	if full.StartSeparator == nil || *full.StartSeparator != "[" || full.EndSeparator == nil || *full.EndSeparator != "]" {
		t.Errorf("FULL_NAME framing = %v/%v, want [ and ]", full.StartSeparator, full.EndSeparator)
	}

	nameAge, ok := findDefinition(cfg.Definitions, "csv", types.ModeVirtual, "NAME_AGE")
	if !ok || nameAge.Members != "NAME.', '.AGE" {
		t.Errorf("virtual NAME_AGE = %+v, want quoted comma literal kept", nameAge)
	}

	comp, ok := findDefinition(cfg.Definitions, "csv", types.ModeComposite, "COMP_*")
	if !ok {
		t.Fatal("composite COMP_* not loaded")
	}
	if comp.Separator != DefaultCompositeSeparator {
		t.Errorf("Separator = %q, want default composite separator", comp.Separator)
	}
	if comp.GroupingPolicy != types.PolicyIgnoreGroups || !comp.AllowMissing {
		t.Errorf("COMP_* = %+v, want IGNORE_GROUPS with allow missing", comp)
	}
	if len(comp.IgnoreNormalization) != 2 || comp.IgnoreNormalization[1] != "AGE" {
		t.Errorf("IgnoreNormalization = %v, want [NAME AGE]", comp.IgnoreNormalization)
	}
	if comp.StartSeparator != nil {
		t.Errorf("StartSeparator = %q, want nil for composite", *comp.StartSeparator)
	}

	pair, ok := findDefinition(cfg.Definitions, "csv", types.ModeComposite, "NAME_AGE")
	if !ok || pair.GroupingPolicy != types.PolicySameGroupOnly {
		t.Errorf("composite NAME_AGE = %+v, want SAME_GROUP_ONLY", pair)
	}

	if _, ok := findDefinition(cfg.Definitions, "json", types.ModeComposite, "ID_PAIR"); !ok {
		t.Error("json ID_PAIR not loaded")
	}
}

func TestLoadConfig_DatatypeFilter(t *testing.T) {
	path := writeConfig(t, definitionsYAML+"engine:\n  datatypes: JSON\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Definitions) != 1 || cfg.Definitions[0].Target != "ID_PAIR" {
		t.Errorf("Definitions = %+v, want only json ID_PAIR", cfg.Definitions)
	}
}

func TestLoadDefinitions_Errors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		wantErr  error
	}{
		{
			name: "names and fields differ",
			settings: map[string]interface{}{
				"csv.data.composite.name":   "A,B",
				"csv.data.composite.fields": "X.Y",
			},
			wantErr: types.ErrDefinitionCountMismatch,
		},
		{
			name: "separator count differs",
			settings: map[string]interface{}{
				"csv.data.composite.name":      "A,B,C",
				"csv.data.composite.fields":    "X,Y,Z",
				"csv.data.composite.separator": "'-','+'",
			},
			wantErr: types.ErrDefinitionCountMismatch,
		},
		{
			name: "policy count differs",
			settings: map[string]interface{}{
				"csv.data.combine.name":            []interface{}{"A", "B", "C"},
				"csv.data.combine.fields":          []interface{}{"X", "Y", "Z"},
				"csv.data.combine.grouping.policy": []interface{}{"IGNORE_GROUPS", "SAME_GROUP_ONLY"},
			},
			wantErr: types.ErrDefinitionCountMismatch,
		},
		{
			name: "unterminated literal in list",
			settings: map[string]interface{}{
				"csv.data.composite.name":   "A",
				"csv.data.composite.fields": "X.'-",
			},
			wantErr: types.ErrUnterminatedLiteral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.settings {
				v.Set(k, val)
			}
			_, err := LoadDefinitions(v, []string{"csv"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadDefinitions() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefinitions_Separators(t *testing.T) {
	v := viper.New()
	v.Set("csv.data.composite.name", "A,B,C")
	v.Set("csv.data.composite.fields", "X.Y,X.Y,X.Y")
	v.Set("csv.data.composite.separator", "'|', ,\",\"")
	v.Set("csv.data.combine.name", "V")
	v.Set("csv.data.combine.fields", "X.Y")

	defs, err := LoadDefinitions(v, []string{"CSV"})
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	want := map[string]string{"A": "|", "B": " ", "C": ","}
	for _, d := range defs {
		if d.Mode == types.ModeVirtual {
			if d.Separator != DefaultVirtualSeparator || d.StartSeparator != nil || d.EndSeparator != nil {
				t.Errorf("virtual V = %+v, want default separator and no framing", d)
			}
			continue
		}
		if d.Datatype != "csv" {
			t.Errorf("Datatype = %q, want csv", d.Datatype)
		}
		if d.Separator != want[d.Target] {
			t.Errorf("%s Separator = %q, want %q", d.Target, d.Separator, want[d.Target])
		}
	}
}

func TestLoadDefinitions_EmptyCompositeSeparatorKept(t *testing.T) {
	v := viper.New()
	v.Set("csv.data.composite.name", "A")
	v.Set("csv.data.composite.fields", "X.Y")
	v.Set("csv.data.composite.separator", "")

	defs, err := LoadDefinitions(v, []string{"csv"})
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	// compilation rejects it with ErrMissingSeparator
	if len(defs) != 1 || defs[0].Separator != "" {
		t.Errorf("Definitions = %+v, want one with empty separator", defs)
	}
}
