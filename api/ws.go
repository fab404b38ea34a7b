package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/room"
)

const (
	wsWriteTimeout = 10 * time.Second

	actionJoinBoard  = "join_board"
	actionLeaveBoard = "leave_board"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsControlFrame is the only message shape clients send over the socket.
// All mutations go through the REST surface.
type wsControlFrame struct {
	Action  string `json:"action"`
	BoardID string `json:"boardId"`
}

// boardSocket upgrades the connection and streams room events to the
// client. Browsers cannot set headers on websocket requests, so the
// token may also arrive as a query parameter.
func boardSocket(hub *room.Hub, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			if token := c.QueryParam("token"); token != "" {
				header = "Bearer " + token
			}
		}
		userID, err := auth.UserIDFromAuthHeader(header)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return nil
		}

		sub := hub.Subscribe(userID)
		done := make(chan struct{})

		go writeEvents(conn, sub, logger, done)

		readControlFrames(conn, hub, sub, logger)

		hub.Unsubscribe(sub)
		<-done
		_ = conn.Close()
		return nil
	}
}

// writeEvents drains the subscription onto the socket. The events channel
// closing means the subscriber was dropped or unsubscribed; either way the
// socket is done.
func writeEvents(conn *websocket.Conn, sub *room.Subscriber, logger *log.Logger, done chan<- struct{}) {
	defer close(done)
	for ev := range sub.Events() {
		data, err := sonic.Marshal(ev)
		if err != nil {
			logger.WithError(err).Error("encode event")
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = conn.Close()
			return
		}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "resubscribe required"))
}

func readControlFrames(conn *websocket.Conn, hub *room.Hub, sub *room.Subscriber, logger *log.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("websocket closed")
			}
			return
		}
		var frame wsControlFrame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			logger.WithError(err).Warn("malformed control frame")
			continue
		}
		if frame.BoardID == "" {
			continue
		}
		switch frame.Action {
		case actionJoinBoard:
			hub.Join(sub, frame.BoardID)
		case actionLeaveBoard:
			hub.Leave(sub, frame.BoardID)
		}
	}
}
