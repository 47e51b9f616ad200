package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/stockrag/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// memObjects is an in-memory bucket returning at most pageSize keys per list
// call.
type memObjects struct {
	objects  map[string][]byte
	pageSize int
	types    map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}, pageSize: 2}
}

func (m *memObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*in.Key] = data
	m.types[*in.Key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *memObjects) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, id := range in.Delete.Objects {
		delete(m.objects, *id.Key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (m *memObjects) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	start := 0
	if in.ContinuationToken != nil {
		start = slices.Index(keys, *in.ContinuationToken)
	}
	end := min(start+m.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func newTestBucket() (*Bucket, *memObjects) {
	m := newMemObjects()
	return &Bucket{Name: "stockrag", api: m}, m
}

func TestKeys(t *testing.T) {
	if got := DocumentKey("vn30", "f1", "bctc-vnm.txt"); got != "graphs/vn30/documents/f1.txt" {
		t.Fatalf("DocumentKey() = %q", got)
	}
	if got := DocumentKey("vn30", "f1", "README"); got != "graphs/vn30/documents/f1" {
		t.Fatalf("DocumentKey() = %q", got)
	}
	at := time.Date(2024, 3, 5, 9, 30, 0, 0, time.FixedZone("ICT", 7*3600))
	if got := SnapshotKey("vn30", at); got != "graphs/vn30/snapshots/20240305T023000Z.json" {
		t.Fatalf("SnapshotKey() = %q", got)
	}
}

func TestPutFile_ContentType(t *testing.T) {
	b, m := newTestBucket()
	ctx := context.Background()

	tests := []struct {
		key  string
		want string
	}{
		{"graphs/a/documents/1.json", "application/json"},
		{"graphs/a/documents/2", "application/octet-stream"},
	}
	for _, tt := range tests {
		if err := b.PutFile(ctx, tt.key, strings.NewReader("x")); err != nil {
			t.Fatalf("PutFile() error = %v", err)
		}
		if m.types[tt.key] != tt.want {
			t.Fatalf("content type of %s = %q, want %q", tt.key, m.types[tt.key], tt.want)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	b, _ := newTestBucket()
	ctx := context.Background()

	snap := common.Snapshot{
		GraphID:   "vn30",
		Nodes:     []common.Node{{ID: "VNM", Name: "VNM", Label: "mã_cổ_phiếu"}},
		Relations: []common.Relation{common.NewRelation("VNM", "thuộc_về", "Vinamilk", "")},
		Summaries: map[int]string{0: "Vinamilk & VNM"},
	}
	older, err := b.PutSnapshot(ctx, snap, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	newer, err := b.PutSnapshot(ctx, snap, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	if err := b.PutFile(ctx, "graphs/vn30/snapshots/notes.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}

	keys, err := b.ListSnapshots(ctx, "vn30")
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if !reflect.DeepEqual(keys, []string{newer, older}) {
		t.Fatalf("ListSnapshots() = %v", keys)
	}

	got, err := b.GetSnapshot(ctx, newer)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("GetSnapshot() = %+v, want %+v", got, snap)
	}
}

func TestDeleteFolder(t *testing.T) {
	b, m := newTestBucket()
	ctx := context.Background()
	for _, k := range []string{"graphs/a/1", "graphs/a/2", "graphs/a/3", "graphs/b/1"} {
		m.objects[k] = []byte("x")
	}

	if err := b.DeleteFolder(ctx, "graphs/a/"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	keys, err := b.ListFiles(ctx, "graphs/")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"graphs/b/1"}) {
		t.Fatalf("remaining keys = %v", keys)
	}
}

func TestWithPathPrefix(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		prefix string
		want   string
	}{
		{"no prefix", "https://s3.example.com/b/k?X-Amz=1", "", "https://s3.example.com/b/k?X-Amz=1"},
		{"prefix", "https://example.com/b/k?X-Amz=1", "/storage", "https://example.com/storage/b/k?X-Amz=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := withPathPrefix(tt.url, tt.prefix)
			if err != nil {
				t.Fatalf("withPathPrefix() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("withPathPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}
