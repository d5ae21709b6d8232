package events

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSHandler upgrades the request and subscribes the socket to hub until the
// peer goes away. Subscribers only listen; anything they send is discarded.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		remote := ws.RemoteAddr().String()

		if err := ws.WriteMessage(websocket.TextMessage, hub.welcome("websocket")); err != nil {
			_ = ws.Close()
			return
		}
		hub.AddWS(ws)
		hub.logger.Info("websocket client connected", "remote", remote)
		defer func() {
			hub.RemoveWS(ws)
			hub.logger.Info("websocket client disconnected", "remote", remote)
		}()

		ws.SetReadLimit(wsReadLimit)
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go keepAlive(ws, done)

		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}
}

// keepAlive pings ws until done is closed. WriteControl may run alongside
// the hub's broadcast writes.
func keepAlive(ws *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			deadline := time.Now().Add(writeTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// RecentHandler returns the recently published events as JSON.
func RecentHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		items := hub.Recent()
		c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
	}
}
