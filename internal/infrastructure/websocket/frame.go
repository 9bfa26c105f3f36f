package websocket

import (
	"encoding/json"
	"time"
)

const (
	clientMessageType = "client_message"
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"

	// JavaScript Date.toISOString layout; the feed expects millisecond precision.
	isoMillis = "2006-01-02T15:04:05.000Z"
)

type clientMessage struct {
	Type      string       `json:"type"`
	Data      clientAction `json:"data"`
	Timestamp string       `json:"timestamp"`
}

type clientAction struct {
	Action string   `json:"action"`
	Mints  []string `json:"mints,omitempty"`
}

func subscribeFrame(mint string, now time.Time) ([]byte, error) {
	return json.Marshal(clientMessage{
		Type:      clientMessageType,
		Data:      clientAction{Action: actionSubscribe, Mints: []string{mint}},
		Timestamp: now.UTC().Format(isoMillis),
	})
}

func unsubscribeFrame(now time.Time) ([]byte, error) {
	return json.Marshal(clientMessage{
		Type:      clientMessageType,
		Data:      clientAction{Action: actionUnsubscribe},
		Timestamp: now.UTC().Format(isoMillis),
	})
}
