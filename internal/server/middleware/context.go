package middleware

import (
	"context"
	"io"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/queue"
	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/graph"
	"github.com/OFFIS-RIT/stockrag/pkg/store"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

// ObjectStore is the part of storage.Bucket used by the handlers.
type ObjectStore interface {
	PutFile(ctx context.Context, key string, body io.Reader) error
	DeleteFolder(ctx context.Context, prefix string) error
	PutSnapshot(ctx context.Context, snap common.Snapshot, t time.Time) (string, error)
	ListSnapshots(ctx context.Context, graphID string) ([]string, error)
	DownloadLink(ctx context.Context, key string) (string, error)
}

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

type App struct {
	Storage  store.GraphStorage
	Locks    queue.Locker
	Queue    queue.Publisher
	Key      keyfunc.Keyfunc
	Bucket   ObjectStore
	AiClient ai.GraphAIClient
	Graph    graph.Options

	MaxTokens    int
	LeaseTTL     time.Duration
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppContextMiddleware wraps every request context in an AppContext sharing
// app.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
