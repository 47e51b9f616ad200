package routes

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/OFFIS-RIT/stockrag/internal/queue"
	"github.com/OFFIS-RIT/stockrag/internal/server/middleware"
	"github.com/OFFIS-RIT/stockrag/internal/storage"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type documentInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

type addDocumentsBody struct {
	GraphID   string          `param:"id" validate:"required,max=64"`
	Documents []documentInput `json:"documents"`
	Strict    bool            `json:"strict" form:"strict"`
}

type addDocumentsResponse struct {
	Message       string              `json:"message"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	Documents     []queue.DocumentRef `json:"documents,omitempty"`
}

// AddDocumentsHandler queues documents for extraction into a graph. It
// accepts either a JSON body listing urls and texts, or multipart/form-data
// with the documents in the "files" field. Uploaded files are stored in the
// bucket first.
func AddDocumentsHandler(c echo.Context) error {
	data := new(addDocumentsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, addDocumentsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, addDocumentsResponse{
			Message: "Invalid request body",
		})
	}

	var uploads []*multipart.FileHeader
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.JSON(http.StatusBadRequest, addDocumentsResponse{
				Message: "Invalid request body",
			})
		}
		uploads = form.File["files"]
	}

	refs, err := documentRefs(data.Documents)
	if err != nil {
		return c.JSON(http.StatusBadRequest, addDocumentsResponse{
			Message: err.Error(),
		})
	}
	if len(refs)+len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, addDocumentsResponse{
			Message: "No documents given",
		})
	}

	ctx := c.Request().Context()
	a := app(c)
	if _, err := a.Storage.GetGraph(ctx, data.GraphID); err != nil {
		return failure(c, err)
	}

	for _, fh := range uploads {
		ref, err := uploadDocument(c, a, data.GraphID, fh)
		if err != nil {
			logger.Error("[API] Failed to upload document", "graph", data.GraphID, "file", fh.Filename, "err", err)
			return c.JSON(http.StatusInternalServerError, addDocumentsResponse{
				Message: "Internal server error",
			})
		}
		refs = append(refs, ref)
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return failure(c, err)
	}
	msg, err := json.Marshal(queue.ExtractMsg{
		GraphID:       data.GraphID,
		CorrelationID: correlationID,
		Documents:     refs,
		Strict:        data.Strict,
	})
	if err != nil {
		return failure(c, err)
	}
	if err := queue.PublishFIFO(a.Queue, queue.ExtractQueue, msg); err != nil {
		return failure(c, err)
	}

	logger.Info("[API] Documents queued", "graph", data.GraphID, "documents", len(refs), "correlation_id", correlationID)
	return c.JSON(http.StatusAccepted, addDocumentsResponse{
		Message:       "Documents queued for extraction",
		CorrelationID: correlationID,
		Documents:     refs,
	})
}

// documentRefs turns JSON inputs into references. Every input needs exactly
// one of url and text.
func documentRefs(inputs []documentInput) ([]queue.DocumentRef, error) {
	refs := make([]queue.DocumentRef, 0, len(inputs))
	for i, in := range inputs {
		if (in.URL == "") == (in.Text == "") {
			return nil, fmt.Errorf("document %d needs exactly one of url and text", i)
		}
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		name := in.Name
		if name == "" && in.URL != "" {
			name = in.URL
		}
		if name == "" {
			name = id
		}
		refs = append(refs, queue.DocumentRef{ID: id, Name: name, URL: in.URL, Text: in.Text})
	}
	return refs, nil
}

func uploadDocument(c echo.Context, a *middleware.App, graphID string, fh *multipart.FileHeader) (queue.DocumentRef, error) {
	id, err := gonanoid.New()
	if err != nil {
		return queue.DocumentRef{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return queue.DocumentRef{}, err
	}
	defer f.Close()

	key := storage.DocumentKey(graphID, id, fh.Filename)
	if err := a.Bucket.PutFile(c.Request().Context(), key, f); err != nil {
		return queue.DocumentRef{}, err
	}
	return queue.DocumentRef{ID: id, Name: fh.Filename, Key: key}, nil
}
