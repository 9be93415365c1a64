package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"collabroom/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func randomPoints(n int) []config.Point {
	pts := make([]config.Point, n)
	for i := range pts {
		pts[i] = config.Point{
			X: rand.Float64() * 1920,
			Y: rand.Float64() * 1080,
		}
	}
	return pts
}

func main() {
	var (
		wsURL    = flag.String("url", "ws://localhost:8080/ws", "ws url")
		room     = flag.String("room", "482913", "room code")
		rate     = flag.Int("rate", 200, "messages per second")
		duration = flag.Int("duration", 10, "seconds")
	)
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	peerID := uuid.NewString()
	send := func(env *config.Envelope) {
		data, _ := json.Marshal(env)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Fatal("write error:", err)
		}
	}

	send(&config.Envelope{Event: config.EvJoinRoom, RoomID: *room, PeerID: peerID})
	log.Println("🔥 Connected to", *wsURL, "room", *room)

	// drain inbound so the relay never sees us as slow
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	end := time.After(time.Duration(*duration) * time.Second)

	strokeID := ""
	var tick int

	for {
		select {
		case <-end:
			log.Println("💥 Bombardment finished")
			return

		case <-ticker.C:
			tick++

			switch {
			case strokeID == "":
				strokeID = uuid.NewString()
				send(&config.Envelope{
					Event: config.EvCanvasData,
					Stroke: &config.StrokeFragment{
						ID:     strokeID,
						Phase:  config.StrokeStart,
						Tool:   config.ToolPen,
						Style:  config.StrokeStyle{Color: "#df4b26", Width: 5},
						Points: randomPoints(1),
					},
				})

			case tick%15 == 0:
				send(&config.Envelope{
					Event:  config.EvCanvasData,
					Stroke: &config.StrokeFragment{ID: strokeID, Phase: config.StrokeEnd},
				})
				strokeID = ""

			default:
				send(&config.Envelope{
					Event: config.EvCanvasData,
					Stroke: &config.StrokeFragment{
						ID:     strokeID,
						Phase:  config.StrokeAppend,
						Points: randomPoints(3 + rand.Intn(5)),
					},
				})
			}

			if tick%50 == 0 {
				send(&config.Envelope{
					Event: config.EvSendMessage,
					Chat: &config.ChatMessage{
						Text:   fmt.Sprintf("bomb %d", tick),
						Sender: "bomber",
						Time:   time.Now().Format("15:04:05"),
					},
				})
			}
		}
	}
}
