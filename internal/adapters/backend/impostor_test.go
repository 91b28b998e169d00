package backend

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

func invocation(target string, args ...any) []byte {
	data, _ := json.Marshal(hubCall{Type: hubInvocation, Target: target, Arguments: args})
	return append(data, recordSeparator)
}

func TestImpostor_Wire(t *testing.T) {
	up := newFakeUpstream(t, []byte("{}\x1e"))
	rec := &recorder{}
	id := domain.SessionIdentity{Type: domain.BackendImpostor, GameCode: "REDSUS", IP: up.addr()}

	im := NewImpostor(id, Options{MoveInterval: 10 * time.Millisecond}, rec.sink)
	require.NoError(t, im.Initialize(context.Background()))
	t.Cleanup(im.Destroy)

	hs := <-up.received
	assert.Equal(t, "{\"protocol\":\"json\",\"version\":1}\x1e", string(hs))
	assert.Equal(t, "/hub", up.path.Load())

	select {
	case track := <-up.received:
		records := splitRecords(track)
		require.Len(t, records, 1)
		var msg hubMessage
		require.NoError(t, json.Unmarshal(records[0], &msg))
		assert.Equal(t, hubInvocation, msg.Type)
		assert.Equal(t, hubTrackGame, msg.Target)
		require.Len(t, msg.Arguments, 1)
		assert.JSONEq(t, `"REDSUS"`, string(msg.Arguments[0]))
	case <-time.After(time.Second):
		t.Fatal("no TrackGame invocation")
	}

	// two records in one frame
	up.send <- append(invocation(hubHostChange, "Red"), invocation(hubGameStarted)...)
	up.send <- []byte("{\"type\":7,\"error\":\"server shutting down\"}\x1e")

	require.Eventually(t, im.Destroyed, time.Second, 5*time.Millisecond)
	assert.Equal(t, []core.Fact{
		core.PlayerNameFact{ClientID: 1, Name: "Red"},
		core.HostChangeFact{ClientID: 1},
		core.GameStateFact{State: domain.GameStateGame},
		core.ErrorFact{Message: "The Impostor server closed the connection.", Fatal: true},
	}, rec.snapshot())
}

func TestImpostor_HandshakeRejected(t *testing.T) {
	up := newFakeUpstream(t, []byte("{\"error\":\"unsupported protocol\"}\x1e"))
	id := domain.SessionIdentity{Type: domain.BackendImpostor, GameCode: "REDSUS", IP: up.addr()}

	im := NewImpostor(id, Options{}, nil)
	assert.ErrorIs(t, im.Initialize(context.Background()), errHandshake)
}

func TestImpostor_Dispatch(t *testing.T) {
	rec := &recorder{}
	im := NewImpostor(domain.SessionIdentity{Type: domain.BackendImpostor, GameCode: "REDSUS", IP: "127.0.0.1"},
		Options{MoveInterval: 20 * time.Millisecond}, rec.sink)
	defer im.Destroy()

	im.handleRecord([]byte(`{"type":1,"target":"HostChange","arguments":["Red"]}`))
	im.handleRecord([]byte(`{"type":1,"target":"SettingsUpdate","arguments":[{"map":2,"crewmateVision":0.75}]}`))
	im.handleRecord([]byte(`{"type":1,"target":"PlayerExiled","arguments":["Blue"]}`))
	im.handleRecord([]byte(`{"type":1,"target":"PlayerExiled","arguments":["Red"]}`))
	im.handleRecord([]byte(`{"type":1,"target":"CommsSabotage","arguments":[false]}`))
	im.handleRecord([]byte(`{"type":1,"target":"CommsSabotage","arguments":[true]}`))
	im.handleRecord([]byte(`{"type":1,"target":"MeetingCalled","arguments":[]}`))
	im.handleRecord([]byte(`{"type":1,"target":"GameEnd","arguments":[]}`))
	im.handleRecord([]byte(`{"type":1,"target":"PlayerExiled","arguments":[]}`))
	im.handleRecord([]byte(`{"type":6}`))
	im.handleRecord([]byte(`not json`))

	assert.Equal(t, []core.Fact{
		core.PlayerNameFact{ClientID: 1, Name: "Red"},
		core.HostChangeFact{ClientID: 1},
		core.SettingsFact{Settings: domain.GameSettings{Map: domain.MapPolus, CrewmateVision: 0.75}},
		core.PlayerNameFact{ClientID: 2, Name: "Blue"},
		core.PlayerFlagFact{ClientID: 2, Flag: domain.PlayerFlagIsDead, Set: true},
		core.PlayerFlagFact{ClientID: 1, Flag: domain.PlayerFlagIsDead, Set: true},
		core.GameFlagFact{Flag: domain.GameFlagCommsSabotaged, Set: true},
		core.GameFlagFact{Flag: domain.GameFlagCommsSabotaged, Set: false},
		core.GameStateFact{State: domain.GameStateMeeting},
		core.GameStateFact{State: domain.GameStateLobby},
	}, rec.snapshot())
}

func TestImpostor_MovesAreCoalesced(t *testing.T) {
	rec := &recorder{}
	im := NewImpostor(domain.SessionIdentity{Type: domain.BackendImpostor, GameCode: "REDSUS", IP: "127.0.0.1"},
		Options{MoveInterval: 20 * time.Millisecond}, rec.sink)
	defer im.Destroy()

	im.handleRecord([]byte(`{"type":1,"target":"PlayerMove","arguments":["Red",{"x":1,"y":1}]}`))
	im.handleRecord([]byte(`{"type":1,"target":"PlayerMove","arguments":["Red",{"x":2,"y":2}]}`))
	im.handleRecord([]byte(`{"type":1,"target":"PlayerMove","arguments":["Red",{"x":3,"y":3}]}`))

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, []core.Fact{
		core.PlayerNameFact{ClientID: 1, Name: "Red"},
		core.PlayerPoseFact{ClientID: 1, Pose: domain.Pose{X: 3, Y: 3}},
	}, rec.snapshot())
}

func TestImpostor_DestroyCancelsPendingMoves(t *testing.T) {
	rec := &recorder{}
	im := NewImpostor(domain.SessionIdentity{Type: domain.BackendImpostor, GameCode: "REDSUS", IP: "127.0.0.1"},
		Options{MoveInterval: 20 * time.Millisecond}, rec.sink)

	im.handleRecord([]byte(`{"type":1,"target":"PlayerMove","arguments":["Red",{"x":1,"y":1}]}`))
	im.Destroy()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, []core.Fact{core.PlayerNameFact{ClientID: 1, Name: "Red"}}, rec.snapshot())
}
