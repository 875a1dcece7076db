package location

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
	"github.com/Nitin1612/bus-tracking-app/internal/waypoint"
)

func TestFromRequest(t *testing.T) {
	lat, lon := 11.0168, 76.9558
	assert.Nil(t, FromRequest(nil, nil))
	assert.Nil(t, FromRequest(&lat, nil))

	loc := FromRequest(&lat, &lon)
	require.NotNil(t, loc)
	pos, err := loc.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, transit.Coord{Lat: lat, Lon: lon}, pos)
}

func TestFixedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fixed{Lat: 1, Lon: 2}.CurrentPosition(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeReply(t *testing.T) {
	pos, err := DecodeReply([]byte(`{"lat":11.5,"lon":76.25}`))
	require.NoError(t, err)
	assert.Equal(t, transit.Coord{Lat: 11.5, Lon: 76.25}, pos)

	_, err = DecodeReply([]byte(`{"error":"permission denied"}`))
	assert.ErrorIs(t, err, waypoint.ErrLocationUnavailable)

	_, err = DecodeReply([]byte(`{"lat":11.5}`))
	assert.ErrorIs(t, err, waypoint.ErrLocationUnavailable)

	_, err = DecodeReply([]byte(`not json`))
	assert.Error(t, err)
}

func TestNATSLocatorWithoutConnection(t *testing.T) {
	l := NewNATSLocator(nil, "finder.location", 0)
	_, err := l.ForSession("abc").CurrentPosition(context.Background())
	assert.ErrorIs(t, err, waypoint.ErrLocationUnavailable)
}

func runNATS(t *testing.T) *nats.Conn {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: server.RANDOM_PORT, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func TestNATSLocatorRequestReply(t *testing.T) {
	nc := runNATS(t)
	_, err := nc.Subscribe("finder.location", func(m *nats.Msg) {
		var req Request
		if err := json.Unmarshal(m.Data, &req); err != nil || req.Session != "s1" {
			m.Respond([]byte(`{"error":"unknown session"}`))
			return
		}
		m.Respond([]byte(`{"lat":11.0168,"lon":76.9558}`))
	})
	require.NoError(t, err)
	_, err = nc.Subscribe("finder.location.denied", func(m *nats.Msg) {
		m.Respond([]byte(`{"error":"denied"}`))
	})
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	ctx := context.Background()

	loc := NewNATSLocator(nc, "finder.location", time.Second)
	pos, err := loc.ForSession("s1").CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, transit.Coord{Lat: 11.0168, Lon: 76.9558}, pos)

	_, err = loc.ForSession("s2").CurrentPosition(ctx)
	assert.ErrorIs(t, err, waypoint.ErrLocationUnavailable)
	assert.ErrorContains(t, err, "unknown session")

	_, err = NewNATSLocator(nc, "finder.location.denied", time.Second).ForSession("s1").CurrentPosition(ctx)
	assert.ErrorIs(t, err, waypoint.ErrLocationUnavailable)
	assert.ErrorContains(t, err, "denied")

	_, err = NewNATSLocator(nc, "finder.location.nobody", time.Second).ForSession("s1").CurrentPosition(ctx)
	assert.ErrorIs(t, err, waypoint.ErrLocationUnavailable)
	assert.ErrorContains(t, err, "no device listening")
}

func TestPlannerUsesNATSLocator(t *testing.T) {
	nc := runNATS(t)
	_, err := nc.Subscribe("finder.location", func(m *nats.Msg) {
		m.Respond([]byte(`{"lat":11.0,"lon":76.9}`))
	})
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	idx := transit.NewIndex([]transit.Stop{{Name: "Peelamedu Junction", Position: transit.Coord{Lat: 3, Lon: 4}}}, nil)
	loc := NewNATSLocator(nc, "finder.location", time.Second)
	p := waypoint.NewPlanner(idx, loc.ForSession("s1"))

	plan := p.Update(context.Background(), selection.Stop("Peelamedu Junction"), nil)
	require.Equal(t, waypoint.StatusPending, plan.Status)
	p.Wait()

	plan = p.Current()
	require.Equal(t, waypoint.StatusReady, plan.Status)
	assert.Equal(t, waypoint.Pair{Origin: transit.Coord{Lat: 11.0, Lon: 76.9}, Destination: transit.Coord{Lat: 3, Lon: 4}}, plan.Pair)
}
