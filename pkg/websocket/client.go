package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the API gateway in front of the engine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one driver connection.
type Client struct {
	hub      *Hub
	driverID string
	conn     *websocket.Conn
	send     chan []byte
	closed   sync.Once
}

// ServeWS upgrades a driver connection and attaches it to the hub. The
// driver ID comes from the route parameter.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.Param("driver_id")
		if driverID == "" {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			hub:      hub,
			driverID: driverID,
			conn:     conn,
			send:     make(chan []byte, 64),
		}
		hub.register(client)

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) close() {
	c.closed.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// readPump drains inbound frames so pings are processed; the engine accepts
// no commands over the socket.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
