// Package httpapi serves lobbies over REST with a websocket per user for events.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fillblank/internal/app"
	"fillblank/internal/domain"
	"fillblank/internal/ports/sources"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	codeLength    = 6
	maxNameLength = 50
	// EventSync carries the full lobby view, sent when a socket opens.
	EventSync app.EventKind = "Sync"
	// EventError answers an action sent over the socket that failed.
	EventError app.EventKind = "Error"
)

// Lobbies is the lobby engine the server drives.
type Lobbies interface {
	CreateLobby(ctx context.Context, code string, rules domain.Rules, sources ...domain.Source) error
	Join(ctx context.Context, code, userID, name string) error
	Disconnect(ctx context.Context, code, userID string) error
	Leave(ctx context.Context, code, userID string) error
	SetRole(ctx context.Context, code, userID string, role domain.Role) error
	SetAICount(ctx context.Context, code string, n int) error
	Start(ctx context.Context, code string) error
	Apply(ctx context.Context, code, userID string, action app.Action) error
	View(ctx context.Context, code, userID string) (app.LobbyView, error)
	Member(ctx context.Context, code, userID string) (bool, error)
	Vacant(ctx context.Context, code string) (bool, error)
	RemoveLobby(ctx context.Context, code string) error
}

// Decks lists the decks lobbies can be created with.
type Decks interface {
	Decks() ([]sources.DeckInfo, error)
}

// Server is the HTTP transport.
type Server struct {
	lobbies Lobbies
	decks   Decks
	tokens  *app.TokenService
	sockets *Sockets
	logger  runtime.Logger
	rules   domain.Rules

	upgrader websocket.Upgrader
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultRules sets the rules of lobbies created without any.
func WithDefaultRules(rules domain.Rules) Option {
	return func(s *Server) {
		s.rules = rules
	}
}

// NewServer builds the routes. sockets must be the event sink the lobbies deliver to.
func NewServer(lobbies Lobbies, decks Decks, tokens *app.TokenService, sockets *Sockets, logger runtime.Logger, opts ...Option) *Server {
	s := &Server{
		lobbies: lobbies,
		decks:   decks,
		tokens:  tokens,
		sockets: sockets,
		logger:  logger,
		rules:   domain.DefaultRules(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), cors())

	api := r.Group("/api")
	api.GET("/decks", s.listDecks)
	api.POST("/lobbies", s.createLobby)
	api.POST("/lobbies/:code/join", s.joinLobby)

	lobby := api.Group("/lobbies/:code", s.authenticate())
	lobby.GET("", s.viewLobby)
	lobby.GET("/events", s.events)
	lobby.POST("/start", s.startGame)
	lobby.POST("/actions", s.applyAction)
	lobby.PUT("/role", s.setRole)
	lobby.PUT("/ai", s.setAICount)
	lobby.DELETE("/me", s.leaveLobby)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP: %s %s %d in %v", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// fail writes err as {"error": kind, "message": reason}.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("HTTP: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": app.ErrorKind(err), "message": app.ClientMessage(err)})
}

func statusFor(err error) int {
	if errors.Is(err, app.ErrLobbyExists) {
		return http.StatusConflict
	}
	switch app.ErrorKind(err) {
	case app.KindInvalidAction:
		return http.StatusBadRequest
	case app.KindNotFound:
		return http.StatusNotFound
	case app.KindOutOfCards, app.KindGameOver:
		return http.StatusConflict
	case app.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": app.KindInvalidAction, "message": message})
}

func (s *Server) listDecks(c *gin.Context) {
	decks, err := s.decks.Decks()
	if err != nil {
		s.logger.Warn("HTTP: Listing decks partially failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks})
}

type createLobbyRequest struct {
	Rules *domain.Rules   `json:"rules"`
	Decks []domain.Source `json:"decks"`
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:codeLength])
}

func (s *Server) createLobby(c *gin.Context) {
	var req createLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The lobby settings could not be read.")
		return
	}
	rules := s.rules
	if req.Rules != nil {
		rules = *req.Rules
	}
	code := newCode()
	if err := s.lobbies.CreateLobby(c.Request.Context(), code, rules, req.Decks...); err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("HTTP: Lobby %s created with %d decks", code, len(req.Decks))
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

type joinRequest struct {
	Name string `json:"name"`
	// Token rejoins as the user it was issued to.
	Token string `json:"token,omitempty"`
}

type joinResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (s *Server) joinLobby(c *gin.Context) {
	code := c.Param("code")
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The join request could not be read.")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len([]rune(name)) > maxNameLength {
		badRequest(c, "Names must be between 1 and 50 characters.")
		return
	}

	userID := uuid.NewString()
	if req.Token != "" {
		if claims, err := s.tokens.Parse(req.Token); err == nil && claims.Lobby == code {
			userID = claims.Subject
		}
	}
	if err := s.lobbies.Join(c.Request.Context(), code, userID, name); err != nil {
		s.fail(c, err)
		return
	}
	token, err := s.tokens.Issue(userID, code, name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, joinResponse{UserID: userID, Token: token})
}

func (s *Server) viewLobby(c *gin.Context) {
	view, err := s.lobbies.View(c.Request.Context(), c.Param("code"), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) startGame(c *gin.Context) {
	if err := s.lobbies.Start(c.Request.Context(), c.Param("code")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) applyAction(c *gin.Context) {
	var action app.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		badRequest(c, "The action could not be read.")
		return
	}
	if err := s.lobbies.Apply(c.Request.Context(), c.Param("code"), userID(c), action); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

func (s *Server) setRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The role could not be read.")
		return
	}
	if err := s.lobbies.SetRole(c.Request.Context(), c.Param("code"), userID(c), req.Role); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type aiRequest struct {
	Count int `json:"count"`
}

func (s *Server) setAICount(c *gin.Context) {
	var req aiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The computer player count could not be read.")
		return
	}
	if err := s.lobbies.SetAICount(c.Request.Context(), c.Param("code"), req.Count); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// leaveLobby removes the caller and closes the lobby once no human is left.
func (s *Server) leaveLobby(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")
	if err := s.lobbies.Leave(ctx, code, userID(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.sockets.Kick(code, userID(c))

	vacant, err := s.lobbies.Vacant(ctx, code)
	if err != nil {
		s.logger.Warn("HTTP: Lobby %s vacancy check failed: %v", code, err)
	} else if vacant {
		if err := s.lobbies.RemoveLobby(ctx, code); err != nil {
			s.logger.Error("HTTP: Lobby %s could not be removed: %v", code, err)
		} else {
			s.logger.Info("HTTP: Lobby %s removed, everyone left", code)
		}
	}
	c.Status(http.StatusNoContent)
}

// events upgrades to a websocket. The socket first receives the lobby view,
// then every event the user may see. Actions may be sent back over it.
func (s *Server) events(c *gin.Context) {
	code := c.Param("code")
	user := userID(c)
	name := claimsOf(c).Name

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("HTTP: Lobby %s websocket upgrade failed: %v", code, err)
		return
	}
	cl := s.sockets.attach(code, user, conn)

	// Connections outlive the request context.
	ctx := context.Background()
	if err := s.lobbies.Join(ctx, code, user, name); err != nil {
		s.logger.Warn("HTTP: Lobby %s reconnect of %s failed: %v", code, user, err)
	}
	view, err := s.lobbies.View(ctx, code, user)
	if err != nil {
		s.sendError(cl, err)
		s.sockets.detach(code, cl)
		return
	}
	s.sockets.sendTo(cl, app.Message{Event: EventSync, Payload: view})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var action app.Action
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("HTTP: Lobby %s socket of %s closed: %v", code, user, err)
			}
			break
		}
		if err := s.lobbies.Apply(ctx, code, user, action); err != nil {
			s.sendError(cl, err)
		}
	}

	if s.sockets.detach(code, cl) {
		if err := s.lobbies.Disconnect(ctx, code, user); err != nil && !errors.Is(err, app.ErrLobbyNotFound) {
			s.logger.Warn("HTTP: Lobby %s disconnect of %s failed: %v", code, user, err)
		}
	}
}

type errorPayload struct {
	Kind    app.Kind `json:"kind"`
	Message string   `json:"message"`
}

func (s *Server) sendError(cl *client, err error) {
	if app.ErrorKind(err) == app.KindInternal {
		s.logger.Error("HTTP: Socket action of %s failed: %v", cl.userID, err)
	}
	s.sockets.sendTo(cl, app.Message{Event: EventError, Payload: errorPayload{Kind: app.ErrorKind(err), Message: app.ClientMessage(err)}})
}
