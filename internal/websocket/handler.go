package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the client and pumps frames until the peer goes away.
// The caller owns the session and closes it once ServeWs returns.
func ServeWs(client *Client, c *websocket.Conn, onControl ControlFunc) {
	client.Conn = c
	client.Hub.Register(client)

	go client.writePump()
	client.readPump(onControl)
}
