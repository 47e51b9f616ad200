package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
)

// ReadSnapshot decodes a JSON snapshot from r.
func ReadSnapshot(r io.Reader) (common.Snapshot, error) {
	var snap common.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return common.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// WriteSnapshot encodes snap as indented JSON to w.
func WriteSnapshot(w io.Writer, snap common.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
