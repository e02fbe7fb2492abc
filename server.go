package main

import (
	"crypto/subtle"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/quietcut/quietcut/internal/audio"
	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/server"
	"github.com/quietcut/quietcut/internal/session"
	"github.com/quietcut/quietcut/internal/types"
)

var loginTmpl = template.Must(template.New("login").Parse(loginHTML))
var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type loginData struct {
	Error      bool
	CSRFToken  string
	Version    string
	Year       int
	StudioName string
}

type indexData struct {
	Version    string
	Year       int
	StudioName string
}

// Server is an HTTP server that provides the control surface for the
// silence-gated recorder.
type Server struct {
	config          *config.Config
	controller      *session.Controller
	sessions        *server.SessionManager
	commands        *server.CommandHandler
	version         *VersionChecker
	ffmpegAvailable bool
}

// NewServer returns a new Server configured with the provided config and controller.
func NewServer(cfg *config.Config, ctrl *session.Controller, commands *server.CommandHandler, ffmpegAvailable bool) *Server {
	return &Server{
		config:          cfg,
		controller:      ctrl,
		sessions:        server.NewSessionManager(),
		commands:        commands,
		version:         NewVersionChecker(),
		ffmpegAvailable: ffmpegAvailable,
	}
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Buffered send channel for thread-safe writes. Only the writer
	// goroutine touches the connection.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	go s.runWebSocketWriter(conn, send)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop handles periodic status and level updates.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	levelsTicker := time.NewTicker(100 * time.Millisecond)  // 10 fps for the level meter
	statusTicker := time.NewTicker(3000 * time.Millisecond) // Status updates every 3s
	defer levelsTicker.Stop()
	defer statusTicker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		close(send)
		return
	}

	for {
		select {
		case <-done:
			close(send)
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		case <-levelsTicker.C:
			if !trySend(s.controller.Levels()) {
				close(send)
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	cfg := s.config.Snapshot()

	devices := make([]types.AudioDevice, 0)
	for _, d := range audio.Devices() {
		devices = append(devices, types.AudioDevice{ID: d.ID, Name: d.Name})
	}

	return types.WSStatusResponse{
		Type:            "status",
		FFmpegAvailable: s.ffmpegAvailable,
		Session:         s.controller.Status(),
		Devices:         devices,
		AudioInput:      cfg.AudioInput,
		Platform:        runtime.GOOS,
		ArtifactDir:     cfg.ArtifactDir,
		Codec:           cfg.Codec,
		WebhookURL:      cfg.WebhookURL,
		LogPath:         cfg.LogPath,
		GraphTenantID:   cfg.GraphTenantID,
		GraphClientID:   cfg.GraphClientID,
		GraphFromAddr:   cfg.GraphFromAddress,
		GraphRecipients: cfg.GraphRecipients,
		APIKey:          cfg.APIKey,
		Version:         s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := s.sessions.AuthMiddleware()

	// Public routes (no auth required)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	// Session API routes (API key auth)
	mux.HandleFunc("/api/session/status", s.apiKeyAuth(s.handleAPIStatus))
	mux.HandleFunc("/api/session/start", s.apiKeyAuth(s.handleAPIStart))
	mux.HandleFunc("/api/session/pause", s.apiKeyAuth(s.handleAPIPause))
	mux.HandleFunc("/api/session/resume", s.apiKeyAuth(s.handleAPIResume))
	mux.HandleFunc("/api/session/stop", s.apiKeyAuth(s.handleAPIStop))
	mux.HandleFunc("/api/session/reset", s.apiKeyAuth(s.handleAPIReset))
	mux.HandleFunc("/api/session/tightness", s.apiKeyAuth(s.handleAPITightness))
	mux.HandleFunc("/api/devices", s.apiKeyAuth(s.handleAPIDevices))

	// Protected routes
	mux.HandleFunc("/ws", auth(s.handleWebSocket))
	mux.HandleFunc("/", auth(s.handleIndex))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// handleLogin handles login page display and form submission.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("quietcut_session"); err == nil {
		if s.sessions.Validate(cookie.Value) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}

	cfg := s.config.Snapshot()
	data := loginData{
		Version:    Version,
		Year:       time.Now().Year(),
		CSRFToken:  s.sessions.CreateCSRFToken(),
		StudioName: cfg.StudioName,
	}

	if r.Method == http.MethodPost {
		csrfToken := r.FormValue("csrf_token")
		if !s.sessions.ValidateCSRFToken(csrfToken) {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		if s.sessions.Login(w, r, username, password, cfg.WebUser, cfg.WebPassword) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		data.Error = true
		data.CSRFToken = s.sessions.CreateCSRFToken() // New token for retry
	}

	w.Header().Set("Content-Type", "text/html")
	if err := loginTmpl.Execute(w, data); err != nil {
		slog.Error("failed to render login page", "error", err)
	}
}

// handleLogout handles user logout requests.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleIndex serves the control surface page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	cfg := s.config.Snapshot()
	w.Header().Set("Content-Type", "text/html")
	if err := indexTmpl.Execute(w, indexData{
		Version:    Version,
		Year:       time.Now().Year(),
		StudioName: cfg.StudioName,
	}); err != nil {
		slog.Error("failed to render index page", "error", err)
	}
}

// apiKeyAuth returns middleware for API key authentication.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.config.APIKey()
		if apiKey == "" {
			http.Error(w, "API key not configured", http.StatusServiceUnavailable)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().WebPort)
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}

const loginHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.StudioName}} - Login</title>
<style>
body{font-family:system-ui,sans-serif;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0;background:#111;color:#eee}
form{background:#1c1c1c;padding:2rem;border-radius:8px;min-width:280px}
h1{font-size:1.2rem;margin-top:0}
input{display:block;width:100%;box-sizing:border-box;margin:.5rem 0;padding:.5rem;border:1px solid #333;border-radius:4px;background:#111;color:#eee}
button{width:100%;padding:.5rem;margin-top:.5rem;border:0;border-radius:4px;background:#2563eb;color:#fff;cursor:pointer}
.err{color:#f87171;font-size:.85rem}
footer{margin-top:1rem;font-size:.75rem;color:#666;text-align:center}
</style>
</head>
<body>
<form method="post" action="/login">
<h1>{{.StudioName}}</h1>
{{if .Error}}<p class="err">Invalid username or password</p>{{end}}
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<input type="text" name="username" placeholder="Username" autocomplete="username" required>
<input type="password" name="password" placeholder="Password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
<footer>QuietCut {{.Version}} &copy; {{.Year}}</footer>
</form>
</body>
</html>`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.StudioName}} - QuietCut</title>
<style>
body{font-family:system-ui,sans-serif;max-width:640px;margin:2rem auto;padding:0 1rem;background:#111;color:#eee}
code{background:#1c1c1c;padding:.15rem .35rem;border-radius:4px}
a{color:#60a5fa}
footer{margin-top:2rem;font-size:.75rem;color:#666}
</style>
</head>
<body>
<h1>{{.StudioName}}</h1>
<p>The control surface speaks WebSocket at <code>/ws</code> and REST at
<code>/api/session/*</code>. Connect a client to start a session.</p>
<p><a href="/logout">Sign out</a></p>
<footer>QuietCut {{.Version}} &copy; {{.Year}}</footer>
</body>
</html>`
