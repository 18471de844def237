package realtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/docuvault-io/docuvault-api/internal/models"
)

type staticVerifier struct{}

func (staticVerifier) VerifyAccess(token string) (*models.TokenClaims, error) {
	return &models.TokenClaims{}, nil
}

func TestGatewayConfigDefaults(t *testing.T) {
	g := NewGateway(newTestHub(), staticVerifier{}, GatewayConfig{}, nil)

	assert.Equal(t, 256, g.cfg.SendQueueSize)
	assert.Equal(t, "access_token", g.cfg.AccessCookie)
	assert.Equal(t, 10*time.Second, g.cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, g.cfg.PongTimeout)
	assert.Equal(t, 54*time.Second, g.cfg.PingInterval)
}

func TestGatewayConfigHonorsTuning(t *testing.T) {
	g := NewGateway(newTestHub(), staticVerifier{}, GatewayConfig{
		SendQueueSize: 32,
		WriteTimeout:  5 * time.Second,
		PongTimeout:   30 * time.Second,
		PingInterval:  25 * time.Second,
	}, nil)

	assert.Equal(t, 32, g.cfg.SendQueueSize)
	assert.Equal(t, 5*time.Second, g.cfg.WriteTimeout)
	assert.Equal(t, 30*time.Second, g.cfg.PongTimeout)
	assert.Equal(t, 25*time.Second, g.cfg.PingInterval)
}

func TestGatewayConfigClampsPingInterval(t *testing.T) {
	// Pings slower than the pong deadline would let healthy connections
	// time out; the interval is pulled back under the deadline.
	g := NewGateway(newTestHub(), staticVerifier{}, GatewayConfig{
		PongTimeout:  10 * time.Second,
		PingInterval: 20 * time.Second,
	}, nil)

	assert.Equal(t, 9*time.Second, g.cfg.PingInterval)
}

func TestHandshakeTokenPriority(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := NewGateway(newTestHub(), staticVerifier{}, GatewayConfig{}, nil)

	newCtx := func(target string, mutate func(r *http.Request)) *gin.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if mutate != nil {
			mutate(req)
		}
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		return c
	}

	t.Run("query wins over cookie and header", func(t *testing.T) {
		c := newCtx("/ws?token=from-query", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
			r.Header.Set("Authorization", "Bearer from-header")
		})
		assert.Equal(t, "from-query", g.handshakeToken(c))
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		c := newCtx("/ws", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
			r.Header.Set("Authorization", "Bearer from-header")
		})
		assert.Equal(t, "from-cookie", g.handshakeToken(c))
	})

	t.Run("bearer header is the fallback", func(t *testing.T) {
		c := newCtx("/ws", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer from-header")
		})
		assert.Equal(t, "from-header", g.handshakeToken(c))
	})

	t.Run("nothing presented", func(t *testing.T) {
		assert.Empty(t, g.handshakeToken(newCtx("/ws", nil)))
	})
}
