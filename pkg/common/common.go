package common

// RelationshipDescriptionKey is the relation property holding the
// human-readable description of a relation.
const RelationshipDescriptionKey = "relationship_description"

// Node is an entity of the knowledge graph.
//
// Identity is the ID. When ID is empty it defaults to Name, so most callers
// only set Name and Label.
type Node struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Key returns the identity of the node.
func (n Node) Key() string {
	if n.ID != "" {
		return n.ID
	}
	return n.Name
}

// String returns the identity of the node. It is the node name used in
// community lines and name filtering.
func (n Node) String() string {
	return n.Key()
}

// Relation is a directed, labeled edge between two nodes.
type Relation struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

// RelationKey identifies a relation by its (source, label, target) triple.
type RelationKey struct {
	SourceID string
	Label    string
	TargetID string
}

func (r Relation) Key() RelationKey {
	return RelationKey{SourceID: r.SourceID, Label: r.Label, TargetID: r.TargetID}
}

// Description returns the relationship_description property, or "" when it
// is missing or not a string.
func (r Relation) Description() string {
	if r.Properties == nil {
		return ""
	}
	if s, ok := r.Properties[RelationshipDescriptionKey].(string); ok {
		return s
	}
	return ""
}

// NewRelation creates a relation with the given description property.
func NewRelation(source, label, target, description string) Relation {
	return Relation{
		SourceID: source,
		TargetID: target,
		Label:    label,
		Properties: map[string]any{
			RelationshipDescriptionKey: description,
		},
	}
}

// RelationRecord is the flat view of an edge returned by name filtering.
type RelationRecord struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
	Description  string `json:"description"`
}

// Triplet is one schema-typed fact, as produced by extraction or posted by
// API clients.
type Triplet struct {
	Head        string `json:"head" validate:"required" jsonschema_description:"Name of the head entity as written in the text"`
	HeadType    string `json:"head_type" validate:"required" jsonschema_description:"Entity type of the head, one of the provided entity types"`
	Relation    string `json:"relation" validate:"required" jsonschema_description:"Relation type, permitted for the head entity type"`
	Tail        string `json:"tail" validate:"required" jsonschema_description:"Name of the tail entity as written in the text"`
	TailType    string `json:"tail_type" validate:"required" jsonschema_description:"Entity type of the tail, one of the provided entity types"`
	Description string `json:"description" jsonschema_description:"One sentence describing the relation, including figures and dates"`
}

// Unit is a contiguous, token-bounded segment of a source document.
type Unit struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
}

// Snapshot is the serialized form of a graph and its community summaries.
type Snapshot struct {
	GraphID   string         `json:"graph_id"`
	Nodes     []Node         `json:"nodes"`
	Relations []Relation     `json:"relations"`
	Summaries map[int]string `json:"summaries,omitempty"`
}
