package transport

import (
	"net/url"
	"time"

	"golang.org/x/net/websocket"
)

// WebsocketConn is a serial bridge over websocket. Every Read is bounded
// by ReadTimeout.
type WebsocketConn struct {
	*websocket.Conn
	ReadTimeout time.Duration
}

// OpenWebsocket dials a websocket serial bridge. The bridge is expected
// to forward binary frames to the serial port as-is.
func OpenWebsocket(rawURL string, conf Config) (*WebsocketConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host
	if u.Scheme == "wss" {
		origin = "https://" + u.Host
	}
	wsConf, err := websocket.NewConfig(rawURL, origin)
	if err != nil {
		return nil, err
	}
	conn, err := websocket.DialConfig(wsConf)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return &WebsocketConn{Conn: conn, ReadTimeout: conf.readTimeout()}, nil
}

// Read implements io.Reader.
func (c *WebsocketConn) Read(p []byte) (int, error) {
	if c.ReadTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}
