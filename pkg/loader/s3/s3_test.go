package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/loader"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeGetter struct {
	objects map[string]string
	calls   int
}

func (f *fakeGetter) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestGetFileText(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"docs/graphs/g1/bctc.txt": "Tồn kho giảm 12%."}}
	l := NewS3GraphFileLoader("docs", getter)
	file := loader.NewGraphDocumentFile(loader.NewGraphFileParams{ID: "f1", FilePath: "graphs/g1/bctc.txt", Loader: l})

	for range 2 {
		got, err := file.GetText(context.Background())
		if err != nil {
			t.Fatalf("GetText() error = %v", err)
		}
		if string(got) != "Tồn kho giảm 12%." {
			t.Fatalf("unexpected text %q", got)
		}
	}
	if getter.calls != 1 {
		t.Fatalf("expected one GetObject call, got %d", getter.calls)
	}
}

func TestGetFileText_Missing(t *testing.T) {
	l := NewS3GraphFileLoader("docs", &fakeGetter{})
	file := loader.NewGraphDocumentFile(loader.NewGraphFileParams{ID: "f1", FilePath: "nope", Loader: l})
	if _, err := file.GetText(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
