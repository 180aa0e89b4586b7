package ws

import (
	"errors"
	"net/http"
	"sync"

	"app/metrics"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("ws is closed")

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Message struct {
	MsgType int
	Message []byte
}

// Client serializes writes to a single websocket connection. The returned
// done channel closes when the write pump stops (peer gone or Close called).
type Client struct {
	conn *websocket.Conn

	writeChan chan *Message

	closed bool
	lock   sync.Mutex
}

func NewWsClient(conn *websocket.Conn) (client *Client, done chan struct{}) {
	client = &Client{
		conn: conn,

		writeChan: make(chan *Message, 5),
	}

	metrics.WebSocketConnections.Inc()

	done = make(chan struct{})

	// reader goroutine only detects disconnects, inbound messages are dropped
	go func() {
		defer client.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer close(done)
		defer func() {
			for range client.writeChan {
			}
		}()

		for msg := range client.writeChan {
			if err := conn.WriteMessage(msg.MsgType, msg.Message); err != nil {
				break
			}
		}
	}()

	return client, done
}

func (ws *Client) Send(msg *Message) error {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if ws.closed {
		return ErrClosed
	}

	ws.writeChan <- msg

	return nil
}

func (ws *Client) Close() error {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if ws.closed {
		return nil
	}

	metrics.WebSocketConnections.Dec()
	ws.closed = true
	close(ws.writeChan)

	return ws.conn.Close()
}
