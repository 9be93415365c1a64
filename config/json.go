package config

// Event names carried over the relay connection.
const (
	EvJoinRoom         = "join-room"
	EvUserConnected    = "user-connected"
	EvUserDisconnected = "user-disconnected"

	EvCanvasData     = "canvas-data"
	EvClear          = "clear"
	EvCodeChange     = "code-change"
	EvCodeUpdate     = "code-update"
	EvSendMessage    = "send-message"
	EvReceiveMessage = "receive-message"

	EvRTCOffer  = "rtc-offer"
	EvRTCAnswer = "rtc-answer"
	EvRTCIce    = "rtc-ice"
)

// Envelope is the single wire frame; at most one payload pointer is set
// depending on Event.
type Envelope struct {
	Event  string `json:"event"`
	RoomID string `json:"roomId,omitempty"`
	PeerID string `json:"peerId,omitempty"`
	To     string `json:"to,omitempty"`

	Stroke *StrokeFragment `json:"stroke,omitempty"`
	Code   *CodePayload    `json:"code,omitempty"`
	Chat   *ChatMessage    `json:"chat,omitempty"`
	Signal *SignalPayload  `json:"signal,omitempty"`
}

// Stroke fragment phases. A stroke in flight is owned by its sender and
// extended append-by-append until the end fragment finalizes it.
const (
	StrokeStart  = "start"
	StrokeAppend = "append"
	StrokeEnd    = "end"
)

const (
	ToolPen    = "pen"
	ToolEraser = "eraser"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StrokeStyle struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

type StrokeFragment struct {
	ID     string      `json:"id"`
	Phase  string      `json:"phase"`
	Tool   string      `json:"tool,omitempty"`
	Style  StrokeStyle `json:"style"`
	Points []Point     `json:"points,omitempty"`
}

type CodePayload struct {
	Text     string `json:"code"`
	Language string `json:"language"`
}

type ChatMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
	Email  string `json:"email"`
	Time   string `json:"time"`
}

// SignalPayload carries one side of an offer/answer/ICE exchange.
type SignalPayload struct {
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}
