package graph

import (
	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
)

// TripletNodes converts a triplet into its head node, tail node and relation.
// Entity names are normalized and used as node ids.
func TripletNodes(t common.Triplet) (common.Node, common.Node, common.Relation) {
	head := util.NormalizeName(t.Head)
	tail := util.NormalizeName(t.Tail)

	h := common.Node{ID: head, Name: head, Label: t.HeadType}
	tl := common.Node{ID: tail, Name: tail, Label: t.TailType}
	rel := common.NewRelation(head, t.Relation, tail, t.Description)
	return h, tl, rel
}

// AddTriplets merges triplets into the store. Triplets with an empty head or
// tail after normalization are skipped. It returns the number of triplets
// added.
func (s *Store) AddTriplets(triplets []common.Triplet) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, t := range triplets {
		h, tl, rel := TripletNodes(t)
		if h.ID == "" || tl.ID == "" {
			continue
		}
		s.mergeNode(h)
		s.mergeNode(tl)
		s.addRelation(rel)
		added++
	}
	return added
}

// mergeNode keeps existing properties of a known node and takes the label of
// the newer one when it has any.
func (s *Store) mergeNode(n common.Node) {
	existing, ok := s.nodes[n.ID]
	if !ok {
		s.addNode(n)
		return
	}
	if n.Label != "" {
		existing.Label = n.Label
	}
	s.nodes[n.ID] = existing
}
