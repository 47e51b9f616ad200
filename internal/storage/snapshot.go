package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
)

// SnapshotKey names a snapshot of graphID taken at t. Keys of one graph sort
// chronologically.
func SnapshotKey(graphID string, t time.Time) string {
	return path.Join(GraphPrefix(graphID), "snapshots", t.UTC().Format("20060102T150405Z")+".json")
}

// PutSnapshot uploads snap as JSON and returns its key.
func (b *Bucket) PutSnapshot(ctx context.Context, snap common.Snapshot, t time.Time) (string, error) {
	var buf bytes.Buffer
	if err := graph.WriteSnapshot(&buf, snap); err != nil {
		return "", err
	}
	key := SnapshotKey(snap.GraphID, t)
	if err := b.PutFile(ctx, key, &buf); err != nil {
		return "", err
	}
	return key, nil
}

func (b *Bucket) GetSnapshot(ctx context.Context, key string) (common.Snapshot, error) {
	data, err := b.GetFile(ctx, key)
	if err != nil {
		return common.Snapshot{}, err
	}
	snap, err := graph.ReadSnapshot(bytes.NewReader(data))
	if err != nil {
		return common.Snapshot{}, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return snap, nil
}

// ListSnapshots returns the snapshot keys of graphID, newest first.
func (b *Bucket) ListSnapshots(ctx context.Context, graphID string) ([]string, error) {
	keys, err := b.ListFiles(ctx, path.Join(GraphPrefix(graphID), "snapshots")+"/")
	if err != nil {
		return nil, err
	}
	keys = slices.DeleteFunc(keys, func(k string) bool { return !strings.HasSuffix(k, ".json") })
	slices.Sort(keys)
	slices.Reverse(keys)
	return keys, nil
}
