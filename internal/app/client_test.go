package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

// skipCooldown moves the join limiter's clock past the cooldown window.
func skipCooldown(reg *Registry) {
	reg.limiter.now = func() time.Time { return time.Now().Add(time.Minute) }
}

func TestClient_JoinCooldown(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, conn := joinAs(t, reg, "a", "Alice")
	room := a.Room()
	conn.reset()

	err := a.Join("Alice", customGame)
	require.ErrorIs(t, err, ErrJoinCooldown)
	assert.Equal(t, errorData{Message: msgJoinCooldown}, last[errorData](t, conn, EventError))
	assert.Same(t, room, a.Room())

	skipCooldown(reg)
	require.NoError(t, a.Join("Alice", customGame))
}

func TestClient_JoinRejectsBadInput(t *testing.T) {
	reg, _ := newTestRegistry(t)

	a, conn := connect(reg, "a", "10.0.0.1")
	require.ErrorIs(t, a.Join("   ", customGame), domain.ErrUsernameEmpty)
	assert.False(t, last[errorData](t, conn, EventError).Fatal)
	assert.Nil(t, a.Room())

	b, conn := connect(reg, "b", "10.0.0.2")
	bad := domain.SessionIdentity{Type: domain.BackendPublicLobby, GameCode: "ABCDE", Region: "MARS"}
	require.ErrorIs(t, b.Join("Bob", bad), domain.ErrUnknownRegion)
	assert.False(t, last[errorData](t, conn, EventError).Fatal)
	assert.Empty(t, reg.Rooms())
}

func TestClient_JoinNormalizesIdentity(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, _ := joinAs(t, reg, "a", "Alice")

	b, _ := connect(reg, "b", "10.0.0.2")
	loose := domain.SessionIdentity{Type: domain.BackendCustomServer, GameCode: " abcde ", IP: "1.2.3.4 "}
	require.NoError(t, b.Join("Bob", loose))
	assert.Same(t, a.Room(), b.Room())
}

func TestClient_JoinSwitchesRooms(t *testing.T) {
	reg, f := newTestRegistry(t)
	a, _ := joinAs(t, reg, "a", "Alice")
	first := a.Room()

	skipCooldown(reg)
	other := domain.SessionIdentity{Type: domain.BackendNoOp, GameCode: "QWERTY"}
	require.NoError(t, a.Join("Alice", other))

	assert.True(t, first.Closed())
	assert.NotSame(t, first, a.Room())
	assert.Equal(t, 2, f.count())
	assert.Equal(t, int32(1), f.adapter(0).destroys.Load())
	require.Len(t, reg.Rooms(), 1)
	assert.Equal(t, "QWERTY", reg.Rooms()[0].GameCode)
}

func TestClient_JoinWhileClosing(t *testing.T) {
	reg, f := newTestRegistry(t)
	reg.closing.Store(true)

	a, conn := connect(reg, "a", "10.0.0.1")
	require.ErrorIs(t, a.Join("Alice", customGame), ErrClosing)
	assert.Equal(t, errorData{Message: msgMaintenance, Fatal: true}, last[errorData](t, conn, EventError))
	assert.Zero(t, f.count())
}

func TestClient_HostOnlyCommands(t *testing.T) {
	reg, f := newTestRegistry(t)
	host, _ := joinAs(t, reg, "a", "Alice")
	guest, guestConn := joinAs(t, reg, "b", "Bob")
	adapter := f.adapter(0)
	adapter.emit(core.PlayerNameFact{ClientID: 1, Name: "Alice"})
	adapter.emit(core.HostChangeFact{ClientID: 1})
	guestConn.reset()

	opts := domain.HostOptions{Falloff: 1}
	require.ErrorIs(t, guest.SetHostOptions(opts), ErrNotHost)
	require.ErrorIs(t, guest.Kick(host.ID(), true), ErrNotHost)
	for _, e := range all[errorData](t, guestConn, EventError) {
		assert.Equal(t, errorData{Message: msgNotHost}, e)
	}
	assert.Len(t, all[errorData](t, guestConn, EventError), 2)
	assert.Same(t, host.Room(), guest.Room())

	require.NoError(t, host.SetHostOptions(opts))
	assert.Equal(t, opts, last[optionsData](t, guestConn, EventSetOptions).Options)

	require.ErrorIs(t, host.Kick("nobody", false), ErrUnknownPeer)
	require.NoError(t, host.Kick(guest.ID(), false))
	assert.Nil(t, guest.Room())
	assert.Equal(t, removeParticipantData{UUID: guest.ID()}, last[removeParticipantData](t, guestConn, EventRemoveParticipant))
}

func TestClient_HostCommandsOutsideRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, _ := connect(reg, "a", "10.0.0.1")

	assert.ErrorIs(t, a.SetHostOptions(domain.DefaultHostOptions()), ErrNotHost)
	assert.ErrorIs(t, a.Kick("b", false), ErrNotHost)
}

func TestClient_BackpressureDropsPosesAndKicksOtherwise(t *testing.T) {
	reg, f := newTestRegistry(t)
	joinAs(t, reg, "a", "Alice")
	_, bConn := joinAs(t, reg, "b", "Bob")
	adapter := f.adapter(0)
	adapter.emit(core.PlayerNameFact{ClientID: 1, Name: "Alice"})

	bConn.setFull(true)
	adapter.emit(core.PlayerPoseFact{ClientID: 1, Pose: domain.Pose{X: 3}})
	assert.False(t, bConn.isClosed())

	adapter.emit(core.SettingsFact{Settings: domain.DefaultGameSettings()})
	assert.True(t, bConn.isClosed())
}

func TestClient_Disconnect(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, _ := joinAs(t, reg, "a", "Alice")
	_, bConn := joinAs(t, reg, "b", "Bob")
	bConn.reset()

	a.Disconnect()

	_, ok := reg.Client("a")
	assert.False(t, ok)
	assert.Nil(t, a.Room())
	assert.Equal(t, removeParticipantData{UUID: a.ID()}, last[removeParticipantData](t, bConn, EventRemoveParticipant))

	// a reconnecting viewer is not held to the old cooldown
	joinAs(t, reg, "a", "Alice")
}

func TestClient_LeaveOutsideRoomIsNoop(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, conn := connect(reg, "a", "10.0.0.1")
	conn.reset()

	a.Leave()
	a.Leave()
	assert.Empty(t, conn.events())
}
