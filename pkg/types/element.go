package types

// ElementType classifies a content element
type ElementType string

const (
	ElementPersona  ElementType = "persona"
	ElementSkill    ElementType = "skill"
	ElementTemplate ElementType = "template"
	ElementAgent    ElementType = "agent"
	ElementMemory   ElementType = "memory"
	ElementEnsemble ElementType = "ensemble"
)

// ValidElementTypes lists every known element type
var ValidElementTypes = []ElementType{
	ElementPersona,
	ElementSkill,
	ElementTemplate,
	ElementAgent,
	ElementMemory,
	ElementEnsemble,
}

// ElementRecord is a content element as enumerated by the content-storage
// collaborator. The index core treats records as read-only: it never mutates
// them and assumes text has already been validated upstream.
type ElementRecord struct {
	ID          string      `yaml:"id"`
	ElementType ElementType `yaml:"element_type"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`

	// Set-valued fields are kept as sorted, de-duplicated slices so the
	// persisted form is deterministic.
	Keywords       []string `yaml:"keywords,omitempty"`
	Tags           []string `yaml:"tags,omitempty"`
	ActionTriggers []string `yaml:"action_triggers,omitempty"`

	// RawText concatenates name, description, keywords, tags and triggers
	// for lexical profiling.
	RawText string `yaml:"raw_text"`
}

// Validate checks the fields the index core depends on
func (e *ElementRecord) Validate() error {
	if e.ID == "" {
		return ErrMissingElementID
	}

	if e.ElementType == "" {
		return ErrMissingElementType
	}

	valid := false
	for _, t := range ValidElementTypes {
		if e.ElementType == t {
			valid = true
			break
		}
	}
	if !valid {
		return ErrUnknownElementType
	}

	return nil
}
