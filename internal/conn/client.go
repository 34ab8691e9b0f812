package conn

import (
	"log"
	"net"

	"github.com/amitgk1/skribble/internal"
)

// Client is the game client's side of a server connection: a dialed TCP
// stream with the outbound batcher attached and a receive loop feeding the
// UI's action callback.
type Client struct {
	conn    net.Conn
	batcher *Batcher
}

// Dial connects to the server and starts the receive loop. onClosed fires
// once when the server side goes away, after the last action was delivered.
func Dial(addr string, onAction func(internal.Action), onClosed func()) (*Client, error) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    netConn,
		batcher: NewBatcher(netConn),
	}

	go func() {
		if err := ReadLoop(netConn, onAction); err != nil {
			log.Printf("[Client] receive loop ended: %v", err)
		}
		c.batcher.Close()
		if onClosed != nil {
			onClosed()
		}
	}()

	return c, nil
}

// Send submits an action to the server. Immediate sends skip the batching
// queue; use them for chat, name changes and other actions where the flush
// interval's added latency matters.
func (c *Client) Send(action internal.Action, immediate bool) {
	if immediate {
		if err := c.batcher.Send(action); err != nil {
			log.Printf("[Client] immediate send failed: %v", err)
		}
		return
	}
	c.batcher.Queue(action)
}

func (c *Client) Close() error {
	c.batcher.Close()
	return c.conn.Close()
}
