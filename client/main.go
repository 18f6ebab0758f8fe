package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// send formats and sends a message to the gateway.
func send(c *websocket.Conn, msgType string, data interface{}) error {
	env := envelope{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		env.Data = raw
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "gateway host:port")
	token := flag.String("token", os.Getenv("CARDROOM_TOKEN"), "session token")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	var hello struct {
		Type string `json:"type"`
		Data struct {
			HeartbeatInterval int `json:"heartbeat_interval"`
		} `json:"data"`
	}
	if err := c.ReadJSON(&hello); err != nil || hello.Type != "Hello" {
		log.Fatalf("Expected Hello, got %q (%v)", hello.Type, err)
	}
	interval := time.Duration(hello.Data.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}

	log.Println("Identifying...")
	if err := send(c, "Identify", map[string]string{"token": *token}); err != nil {
		log.Fatalf("Write error: %v", err)
	}

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var env envelope
			if err := c.ReadJSON(&env); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s %s", env.Type, string(env.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- strings.TrimSpace(reader.Text())
		}
	}()

	log.Println("Client started. Type 'quit' to leave.")
	heartbeat := time.NewTicker(interval / 2)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := send(c, "Heartbeat", nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case text := <-lines:
			if text == "quit" {
				closeConn(c, done)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			closeConn(c, done)
			return
		}
	}
}

// closeConn sends a close frame and waits briefly for the reader to stop.
func closeConn(c *websocket.Conn, done <-chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
