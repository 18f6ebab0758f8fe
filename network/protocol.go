package network

import (
	"encoding/json"
)

// Event types sent to clients.
const (
	EventHello         = "Hello"
	EventReady         = "Ready"
	EventError         = "Error"
	EventRoomCreate    = "RoomCreate"
	EventRoomUpdate    = "RoomUpdate"
	EventRoomDelete    = "RoomDelete"
	EventPlayerJoined  = "PlayerJoined"
	EventPlayerUpdated = "PlayerUpdated"
	EventPlayerLeft    = "PlayerLeft"
	EventGameStarted   = "GameStarted"
	EventGameNewTurn   = "GameNewTurn"
	EventGameCards     = "GameCards"
	EventGameOver      = "GameOver"
)

// Message types sent by clients.
const (
	MsgIdentify  = "Identify"
	MsgHeartbeat = "Heartbeat"
)

// Gateway error kinds.
const (
	ErrorBadTokenFormat = "bad_token_format"
	ErrorInvalidToken   = "invalid_token"
	ErrorInternal       = "internal"
	ErrorNotFound       = "not_found"
	ErrorForbidden      = "forbidden"
	ErrorDeclined       = "declined"
	ErrorBadRequest     = "bad_request"
)

// Envelope 消息封装: {"type": ..., "data": ...}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode 将事件编码为文本帧
func Encode(eventType string, data interface{}) ([]byte, error) {
	env := Envelope{Type: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// Decode 解析客户端消息
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Hello is sent as soon as the socket opens.
type Hello struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// Identify carries the session token.
type Identify struct {
	Token string `json:"token"`
}

// Error reports a failed client message.
type Error struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Ready confirms Identify. RoomID is set when the session is already seated.
type Ready struct {
	AccountID string `json:"account_id"`
	RoomID    string `json:"room_id,omitempty"`
	Resumed   bool   `json:"resumed"`
}
