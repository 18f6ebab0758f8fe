// network/connection.go
package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Connection interface {
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

// WSConnection 文本帧 websocket 连接
type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (c *WSConnection) Send(data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.heartbeat > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.heartbeat))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadMessage blocks for the next frame. Every frame counts as a heartbeat.
func (c *WSConnection) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return data, nil
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
