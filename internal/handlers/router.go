package handlers

import (
	"io"
	"net/http"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/logger"
	"github.com/codebuildervaibhav/transcript-console/internal/queue"
)

// Version is reported by /health.
const Version = "1.0.0"

// Deps are the components behind the console API. Preferences, Exporter,
// WorkerPool and Logs are optional; their routes are left out when nil.
type Deps struct {
	Auth        Authenticator
	Library     *library.Library
	Sessions    *editor.Registry
	Preferences Preferences
	Exporter    Exporter
	WorkerPool  *queue.WorkerPool
	Logs        *logger.LogBuffer
	Logger      *zap.Logger

	Layout     ListLayout
	TempDir    string
	MaxSizeMB  int
	HTTPClient *http.Client
	AccessLog  io.Writer
}

// NewApp builds the fiber application with every console route.
func NewApp(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.AccessLog == nil {
		d.AccessLog = os.Stdout
	}
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	if d.MaxSizeMB <= 0 {
		d.MaxSizeMB = 500
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             d.MaxSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: d.AccessLog}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"version":   Version,
			"logged_in": d.Auth.LoggedIn(),
		})
	})
	if d.Logs != nil {
		app.Get("/logs", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"logs": d.Logs.Lines()})
		})
	}

	auth := NewAuthHandler(d.Auth, d.Logger.Named("auth"))
	app.Get("/login", auth.Status)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	transcripts := NewTranscriptsHandler(d.Library, d.Sessions, d.Preferences, d.Layout, d.Logger.Named("transcripts"))
	app.Get("/transcripts", transcripts.List)
	app.Post("/transcripts/delete", transcripts.DeleteMany)
	app.Put("/transcripts/:id", transcripts.Rename)
	app.Delete("/transcripts/:id", transcripts.Delete)

	sessions := NewSessionsHandler(d.Sessions, d.Library, d.Exporter, d.Logger.Named("sessions"))
	app.Get("/sessions", sessions.List)
	app.Post("/sessions", sessions.Open)
	app.Get("/sessions/:id", sessions.Get)
	app.Delete("/sessions/:id", sessions.Close)
	app.Post("/sessions/:id/focus", sessions.Focus)
	app.Post("/sessions/:id/input", sessions.Input)
	app.Post("/sessions/:id/save", sessions.Save)
	app.Post("/sessions/:id/keys", sessions.Key)
	app.Post("/sessions/:id/speakers", sessions.RenameSpeaker)
	app.Post("/sessions/:id/export", sessions.Export)

	socket := NewSessionSocket(d.Sessions, d.Logger.Named("socket"))
	app.Get("/ws/sessions/:id", socket.Upgrade, websocket.New(socket.Handle))

	if d.Preferences != nil {
		prefs := NewPreferencesHandler(d.Preferences)
		app.Get("/preferences/:key", prefs.Get)
		app.Put("/preferences/:key", prefs.Put)
		app.Get("/searches", prefs.Searches)
		app.Post("/searches", prefs.AddSearch)
	}

	if d.WorkerPool != nil {
		upload := NewUploadHandler(d.WorkerPool, d.TempDir, d.MaxSizeMB, d.Logger.Named("upload"))
		gdrive := NewGDriveHandler(d.WorkerPool, d.HTTPClient, d.TempDir, d.MaxSizeMB, d.Logger.Named("gdrive"))
		stream := NewStreamHandler(d.WorkerPool, d.TempDir, d.MaxSizeMB, d.Logger.Named("stream"))
		app.Post("/upload", upload.Handle)
		app.Post("/gdrive", gdrive.Handle)
		app.Get("/jobs", upload.Jobs)
		app.Get("/jobs/:id", upload.Job)
		app.Get("/ws/stream", func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			return c.Next()
		}, websocket.New(stream.Handle))
	}

	return app
}
