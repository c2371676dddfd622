package session

import (
	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
)

type MessageType string

// Client to server.
const (
	MsgVideoFrame       MessageType = "video_frame"
	MsgInstrumentChange MessageType = "instrument_change"
	MsgPing             MessageType = "ping"
)

// Server to client.
const (
	MsgGestureDetected   MessageType = "gesture_detected"
	MsgHandLandmarks     MessageType = "hand_landmarks"
	MsgInstrumentChanged MessageType = "instrument_changed"
	MsgPong              MessageType = "pong"
	MsgError             MessageType = "error"
)

// Inbound is the union of every client message.
type Inbound struct {
	Type       MessageType `json:"type"`
	Image      string      `json:"image,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
	Instrument string      `json:"instrument,omitempty"`
}

type GestureDetected struct {
	Type        MessageType        `json:"type"`
	Gestures    []gesture.Event    `json:"gestures"`
	Landmarks   [][]gesture.Point3 `json:"landmarks"`
	ImageWidth  int                `json:"image_width"`
	ImageHeight int                `json:"image_height"`
	Instrument  instrument.Name    `json:"instrument"`
	Timestamp   string             `json:"timestamp"`
	Gesture     string             `json:"gesture"`
	Triggered   bool               `json:"triggered"`
}

// HandLandmarks reports hands that produced no confident gesture, so the
// client can still draw the overlay.
type HandLandmarks struct {
	Type        MessageType        `json:"type"`
	Landmarks   [][]gesture.Point3 `json:"landmarks"`
	ImageWidth  int                `json:"image_width"`
	ImageHeight int                `json:"image_height"`
	Instrument  instrument.Name    `json:"instrument"`
	Timestamp   string             `json:"timestamp"`
}

type InstrumentChanged struct {
	Type       MessageType     `json:"type"`
	Instrument instrument.Name `json:"instrument"`
	Timestamp  string          `json:"timestamp"`
}

type Pong struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Error     string      `json:"error"`
	Timestamp string      `json:"timestamp"`
}
