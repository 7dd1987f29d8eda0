package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat   = 1
	MsgTypeCreateRoom  = 101
	MsgTypeJoinRoom    = 102
	MsgTypeLeaveRoom   = 103
	MsgTypeSetQuestion = 104
	MsgTypeStartRound  = 105
	MsgTypeSubmitGuess = 106
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// Interactive smoke client. Commands:
//
//	create <name>
//	join <roomID> <name>
//	question <roomID> <question> | <answer>
//	start <roomID>
//	guess <roomID> <text>
//	leave
func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:4000", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	// Heartbeats keep the server's read deadline from expiring while the
	// operator is idle at the prompt.
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := send(c, MsgTypeHeartbeat, map[string]string{}); err != nil {
					return
				}
			}
		}
	}()

	log.Println("Client started. Try: create alice")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "create":
				if len(fields) < 2 {
					log.Println("usage: create <name>")
					continue
				}
				err = send(c, MsgTypeCreateRoom, map[string]string{"name": fields[1]})
			case "join":
				if len(fields) < 3 {
					log.Println("usage: join <roomID> <name>")
					continue
				}
				err = send(c, MsgTypeJoinRoom, map[string]string{"room_id": fields[1], "name": fields[2]})
			case "question":
				rest := strings.SplitN(strings.TrimSpace(text)[len("question"):], "|", 2)
				if len(fields) < 3 || len(rest) != 2 {
					log.Println("usage: question <roomID> <question> | <answer>")
					continue
				}
				qFields := strings.Fields(rest[0])
				err = send(c, MsgTypeSetQuestion, map[string]string{
					"room_id":  qFields[0],
					"question": strings.TrimSpace(strings.Join(qFields[1:], " ")),
					"answer":   strings.TrimSpace(rest[1]),
				})
			case "start":
				if len(fields) < 2 {
					log.Println("usage: start <roomID>")
					continue
				}
				err = send(c, MsgTypeStartRound, map[string]string{"room_id": fields[1]})
			case "guess":
				if len(fields) < 3 {
					log.Println("usage: guess <roomID> <text>")
					continue
				}
				err = send(c, MsgTypeSubmitGuess, map[string]string{
					"room_id": fields[1],
					"guess":   strings.Join(fields[2:], " "),
				})
			case "leave":
				err = send(c, MsgTypeLeaveRoom, map[string]string{})
			default:
				log.Printf("Unknown command: %s", fields[0])
				continue
			}

			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", fields[0])
		}
	}
}
