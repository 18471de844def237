package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/docuvault-io/docuvault-api/internal/models"
)

const maxMessageSize = 4 << 10

// TokenVerifier authenticates the WebSocket handshake.
type TokenVerifier interface {
	VerifyAccess(token string) (*models.TokenClaims, error)
}

// GatewayConfig tunes the WebSocket endpoint. Zero timeouts fall back to
// defaults; PingInterval must stay below PongTimeout or pings arrive too
// late to keep the read deadline alive.
type GatewayConfig struct {
	AllowedOrigins []string
	SendQueueSize  int
	AccessCookie   string
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
}

// Gateway upgrades HTTP requests to WebSocket sessions and runs the pumps.
type Gateway struct {
	hub      *Hub
	verifier TokenVerifier
	logger   *zap.Logger
	cfg      GatewayConfig
	upgrader websocket.Upgrader
}

// NewGateway constructs the WebSocket gateway.
func NewGateway(hub *Hub, verifier TokenVerifier, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.AccessCookie == "" {
		cfg.AccessCookie = "access_token"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = cfg.PongTimeout * 9 / 10
	}

	g := &Gateway{hub: hub, verifier: verifier, logger: logger, cfg: cfg}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// Handle is the gin endpoint for WebSocket connections. The handshake is
// authenticated before the upgrade: query token first, then the access
// cookie, then a bearer header.
func (g *Gateway) Handle(c *gin.Context) {
	token := g.handshakeToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := g.verifier.VerifyAccess(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		g.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(uuid.NewString(), claims.Subject, g.cfg.SendQueueSize)

	if err := g.hub.Connect(c.Request.Context(), client); err != nil {
		g.logger.Error("ws connect failed", zap.String("user_id", claims.Subject), zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "connect failed"), time.Now().Add(g.cfg.WriteTimeout))
		_ = conn.Close()
		return
	}

	client.trySend(NewEvent(EventConnectionStatus, map[string]interface{}{
		"connected": true,
		"client_id": client.ID,
	}))

	go g.writePump(conn, client)
	go g.readPump(conn, client)
}

// writePump drains the client queue onto the wire and keeps the connection
// alive with pings. One writer goroutine per connection; gorilla allows at
// most one concurrent writer.
func (g *Gateway) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		g.teardown(conn, client)
	}()

	for {
		select {
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				g.logger.Debug("ws write failed", zap.String("client_id", client.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames. Clients do not send domain commands
// over the socket; reads exist to process control frames and detect the
// peer going away.
func (g *Gateway) readPump(conn *websocket.Conn, client *Client) {
	defer g.teardown(conn, client)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("ws read failed", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
	}
}

// teardown is invoked from both pumps; Disconnect and Close are idempotent
// so whichever pump exits first wins.
func (g *Gateway) teardown(conn *websocket.Conn, client *Client) {
	// The request context is gone by the time the pumps exit; presence
	// cleanup must still run.
	g.hub.Disconnect(context.Background(), client)
	_ = conn.Close()
}

func (g *Gateway) handshakeToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	if cookie, err := c.Cookie(g.cfg.AccessCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients send no Origin; there is nothing to protect.
		return true
	}
	if len(g.cfg.AllowedOrigins) == 0 {
		return false
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
