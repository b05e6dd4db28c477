// internal/types/definitions.go
package types

/*
 * Raw definition configuration.
 *
 * DefinitionConfig is the uncompiled form of one derived field definition, as
 * produced by the viper loader or read back from the definition store.
 * internal/compose turns it into a compiled Definition. Mode and policy are
 * plain strings here; compilation maps them to closed enums and rejects
 * unknown names.
 *
 * Member syntax: members separated by '.', literals wrapped in matching
 * single or double quotes (e.g. LAST.', '.FIRST). A member containing one
 * '*' is a field-name pattern.
 */

// Definition modes.
const (
	ModeComposite = "composite"
	ModeVirtual   = "virtual"
)

// Grouping policy names accepted in configuration.
const (
	PolicySameGroupOnly         = "SAME_GROUP_ONLY"
	PolicyGroupedWithNonGrouped = "GROUPED_WITH_NON_GROUPED"
	PolicyIgnoreGroups          = "IGNORE_GROUPS"
)

// DefinitionConfig is one derived field definition prior to compilation.
type DefinitionConfig struct {
	DefinitionID        DefinitionID `json:"definition_id,omitempty" yaml:"definition_id,omitempty"`
	Datatype            string       `json:"datatype" yaml:"datatype"`
	Mode                string       `json:"mode" yaml:"mode"`
	Target              string       `json:"target" yaml:"target"`
	Members             string       `json:"members" yaml:"members"`
	Separator           string       `json:"separator" yaml:"separator"`
	StartSeparator      *string      `json:"start_separator,omitempty" yaml:"start_separator,omitempty"` // virtual only
	EndSeparator        *string      `json:"end_separator,omitempty" yaml:"end_separator,omitempty"`     // virtual only
	AllowMissing        bool         `json:"allow_missing" yaml:"allow_missing"`
	GroupingPolicy      string       `json:"grouping_policy" yaml:"grouping_policy"`
	IgnoreNormalization []string     `json:"ignore_normalization,omitempty" yaml:"ignore_normalization,omitempty"`
}
