package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/network"
)

// identifyTimeout bounds the wait for Identify after Hello.
const identifyTimeout = 10 * time.Second

func (s *GameServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func sendEvent(conn network.Connection, eventType string, payload interface{}) error {
	frame, err := network.Encode(eventType, payload)
	if err != nil {
		return err
	}
	return conn.Send(frame)
}

func gatewayError(err error) network.Error {
	kind, ok := gatewayKinds[errs.KindOf(err)]
	if !ok {
		kind = network.ErrorInternal
	}
	e := network.Error{Kind: kind}
	if kind != network.ErrorInternal {
		e.Detail = err.Error()
	}
	return e
}

// identify resolves the token of the first client message, which must be
// Identify.
func (s *GameServer) identify(frame []byte) (string, error) {
	env, err := network.Decode(frame)
	if err != nil || env.Type != network.MsgIdentify {
		return "", errs.New(errs.KindBadRequest, "expected Identify")
	}
	var msg network.Identify
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return "", errs.Wrap(errs.KindBadRequest, "malformed Identify", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), identifyTimeout)
	defer cancel()
	return s.auth.Resolve(ctx, msg.Token)
}

func (s *GameServer) handleConnection(conn network.Connection) {
	defer conn.Close()

	interval := s.opts.HeartbeatInterval
	if err := sendEvent(conn, network.EventHello, network.Hello{HeartbeatInterval: int(interval / time.Millisecond)}); err != nil {
		return
	}
	conn.SetHeartbeat(identifyTimeout / 2)

	frame, err := conn.ReadMessage()
	if err != nil {
		return
	}
	accountID, err := s.identify(frame)
	if err != nil {
		sendEvent(conn, network.EventError, gatewayError(err))
		logger.Log.Infof("Identify from %s failed: %v", conn.RemoteAddr(), err)
		return
	}
	conn.SetHeartbeat(interval)

	ch := network.NewChannel(s.opts.ChannelBuffer)
	sess, resumed := s.sessions.Identify(accountID, ch)

	// Ready goes out before the writer starts, so it precedes every queued event.
	ready := network.Ready{AccountID: accountID, RoomID: sess.RoomID, Resumed: resumed}
	if err := sendEvent(conn, network.EventReady, ready); err != nil {
		s.sessions.Disconnect(accountID, ch.ID)
		return
	}
	logger.Log.Infof("Account %s identified from %s, resumed: %t", accountID, conn.RemoteAddr(), resumed)

	go s.writePump(conn, ch)
	if resumed && sess.RoomID != "" {
		s.rooms.Resend(accountID, sess.RoomID)
	}

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleMessage(accountID, frame)
	}

	logger.Log.Infof("Connection of account %s closed", accountID)
	s.sessions.Disconnect(accountID, ch.ID)
}

// writePump drains the channel until it is closed or the socket fails.
func (s *GameServer) writePump(conn network.Connection, ch *network.Channel) {
	for frame := range ch.Frames() {
		if err := conn.Send(frame); err != nil {
			break
		}
	}
	conn.Close()
}

// handleMessage processes a frame after Identify. Every frame refreshes the
// read deadline, so Heartbeat needs no reply.
func (s *GameServer) handleMessage(accountID string, frame []byte) {
	env, err := network.Decode(frame)
	if err != nil {
		s.broadcaster.SendError(accountID, network.ErrorBadRequest, "malformed message")
		return
	}
	switch env.Type {
	case network.MsgHeartbeat:
	case network.MsgIdentify:
		s.broadcaster.SendError(accountID, network.ErrorDeclined, "already identified")
	default:
		s.broadcaster.SendError(accountID, network.ErrorBadRequest, "unknown message type "+env.Type)
	}
}
