package out_ws

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/ports/out"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/application/presence"

	"github.com/stretchr/testify/assert"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  map[string][]string
	fails map[string]error
}

func (s *fakeSender) SendTypedMessage(clientID, msgType string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fails[clientID]; ok {
		return err
	}
	s.sent[clientID] = append(s.sent[clientID], msgType)
	return nil
}

func newEmitter() (*WsEmitter, *fakeSender, *presence.Channels) {
	sender := &fakeSender{sent: map[string][]string{}, fails: map[string]error{}}
	ch := presence.NewChannels()
	log := logger.NewLoggerWithWriter("emitter-test", logger.LevelError, io.Discard)
	return NewWsEmitter(sender, ch, log), sender, ch
}

func TestEmitToChannelMembersOnly(t *testing.T) {
	em, sender, ch := newEmitter()
	ch.Join("o-7", "c1")
	ch.Join("o-7", "c2")
	ch.Join("o-8", "c3")

	n := em.EmitToChannel("o-7", "location-update", map[string]float64{"lat": 1})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"location-update"}, sender.sent["c1"])
	assert.Equal(t, []string{"location-update"}, sender.sent["c2"])
	assert.Empty(t, sender.sent["c3"])
}

func TestEmitSkipsGoneAndSlowConnections(t *testing.T) {
	em, sender, ch := newEmitter()
	ch.Join("o-7", "c1")
	ch.Join("o-7", "gone")
	ch.Join("o-7", "slow")
	sender.fails["gone"] = ws.ErrClientNotFound
	sender.fails["slow"] = ws.ErrSendBufferFull

	assert.Equal(t, 1, em.EmitToChannel("o-7", "status-update", nil))
	assert.Equal(t, 0, em.EmitToChannel("empty", "status-update", nil))
}

func TestEmitToMapsMissingClient(t *testing.T) {
	em, sender, _ := newEmitter()
	sender.fails["gone"] = ws.ErrClientNotFound
	sender.fails["slow"] = ws.ErrSendBufferFull

	assert.ErrorIs(t, em.EmitTo("gone", "pong", nil), out.ErrConnectionGone)
	err := em.EmitTo("slow", "pong", nil)
	assert.True(t, errors.Is(err, ws.ErrSendBufferFull))
	assert.NoError(t, em.EmitTo("c1", "pong", nil))
}
