package main

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 5 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	debugSocket = false
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: read an allowed-origin list from config instead of accepting everything
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SocketClient is a middleman between the websocket connection and the hub.
type SocketClient struct {
	ClientData
	conn *websocket.Conn
	send chan Outbound
	once sync.Once
	ip   string
}

// NewSocketClient creates a SocketClient from a connection. ip is the
// X-Forwarded-For address http.go used for the per-IP connection cap; it is
// released again in Destroy so the cap doesn't leak across disconnects.
func NewSocketClient(conn *websocket.Conn, ip string) *SocketClient {
	return &SocketClient{
		conn: conn,
		send: make(chan Outbound, 16), // ~1.5s of backlog before the connection is dropped as unresponsive
		ip:   ip,
	}
}

func (client *SocketClient) Close() {
	close(client.send)
}

func (client *SocketClient) Data() *ClientData {
	return &client.ClientData
}

func (client *SocketClient) Destroy() {
	client.once.Do(func() {
		hub := client.Hub

		if client.ip != "" && hub != nil {
			hub.ipMu.Lock()
			if hub.ipConns[client.ip] > 0 {
				hub.ipConns[client.ip]--
				if hub.ipConns[client.ip] == 0 {
					delete(hub.ipConns, client.ip)
				}
			}
			hub.ipMu.Unlock()
		}

		// Needs to go through when called on hub goroutine.
		select {
		case hub.unregister <- client:
		default:
			go func() {
				hub.unregister <- client
			}()
		}

		_ = client.conn.Close()
	})
}

func (client *SocketClient) Init() {
	go client.writePump()
	go client.readPump()
}

func (client *SocketClient) Send(message Outbound) {
	select {
	case client.send <- message:
	default:
		// Not responsive.
		client.Destroy()
	}
}

// readPump decodes inbound frames and forwards them to the hub. A malformed
// frame is a protocol error (spec 7): it is logged at a throttled rate and
// dropped, but the connection stays open so one bad frame can't be used to
// knock a player off the server.
func (client *SocketClient) readPump() {
	defer client.Destroy()
	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, r, err := client.conn.NextReader()
		if err != nil {
			if debugSocket {
				fmt.Println(err)
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Println("close error:", err)
			}
			return
		}

		key := client.Player.ID

		var message Message
		if err := jsonAPI.NewDecoder(r).Decode(&message); err != nil {
			logProtocolError(key, "unmarshal error: %v", err)
			continue
		}

		in, ok := message.Data.(Inbound)
		if !ok {
			logProtocolError(key, "unrecognized message type from client")
			continue
		}
		client.Hub.inbound <- SignedInbound{Client: client, Inbound: in}
	}
}

func (client *SocketClient) writePump() {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		if err := recover(); err != nil {
			if debugSocket {
				fmt.Println("send error:", err)
			}
		}
		pingTicker.Stop()
		client.Destroy()
	}()

	for {
		select {
		case out, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}

			w, err := client.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				panic(err)
			}

			// Wrap with Message to marshal the {type, data} envelope.
			if err = jsonAPI.NewEncoder(w).Encode(Message{Data: out}); err != nil {
				log.Println("encoding error:", err)
				panic(err)
			}

			out.Pool()

			if err = w.Close(); err != nil {
				panic(err)
			}
		case <-pingTicker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
