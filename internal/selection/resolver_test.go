package selection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

func testIndex() *transit.Index {
	stops := []transit.Stop{
		{Name: "Gandhipuram Bus Stand", Position: transit.Coord{Lat: 1, Lon: 2}},
		{Name: "Peelamedu Junction", Position: transit.Coord{Lat: 3, Lon: 4}},
		{Name: "6A"},
	}
	routes := []transit.Route{
		{BusNo: "6A", From: "Gandhipuram", To: "Peelamedu"},
		{BusNo: "45", From: "Ukkadam", To: "Town Hall"},
	}
	return transit.NewIndex(stops, routes)
}

func TestResolveExplicitInputs(t *testing.T) {
	r := NewResolver(testIndex(), StopWinsOnConflict)

	sel, err := r.Resolve(RouteInput("6A"))
	require.NoError(t, err)
	busNo, ok := sel.Route()
	assert.True(t, ok)
	assert.Equal(t, "6A", busNo)
	_, ok = sel.Stop()
	assert.False(t, ok)

	again, err := r.Resolve(RouteInput("6A"))
	require.NoError(t, err)
	assert.True(t, sel.Equal(again))

	sel, err = r.Resolve(StopInput("Peelamedu Junction"))
	require.NoError(t, err)
	name, ok := sel.Stop()
	assert.True(t, ok)
	assert.Equal(t, "Peelamedu Junction", name)
	_, ok = sel.Route()
	assert.False(t, ok)
}

func TestResolveFreeText(t *testing.T) {
	tests := []struct {
		name   string
		policy ConflictPolicy
		text   string
		want   Selection
	}{
		{"stop substring", StopWinsOnConflict, "gandhi", Stop("Gandhipuram Bus Stand")},
		{"route exact", StopWinsOnConflict, "45", Route("45")},
		{"route number is case-insensitive", StopWinsOnConflict, "6a", Stop("6A")},
		{"stop wins on conflict", StopWinsOnConflict, "6A", Stop("6A")},
		{"route wins when configured", RouteWinsOnConflict, "6A", Route("6A")},
		{"no match", StopWinsOnConflict, "9Z", None()},
		{"blank", StopWinsOnConflict, "   ", None()},
		{"empty", StopWinsOnConflict, "", None()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testIndex(), tt.policy)
			got, err := r.Resolve(FreeInput(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveBlankExplicitValue(t *testing.T) {
	r := NewResolver(testIndex(), StopWinsOnConflict)
	for _, in := range []Input{RouteInput(""), StopInput(""), StopInput("  "), {Kind: InputRoute}} {
		sel, err := r.Resolve(in)
		require.NoError(t, err)
		assert.True(t, sel.IsNone(), "%s %q", in.Kind, in.Value)
	}
}

func TestResolveUnknownKind(t *testing.T) {
	r := NewResolver(testIndex(), StopWinsOnConflict)
	sel, err := r.Resolve(Input{Kind: "bus", Value: "6A"})
	assert.Error(t, err)
	assert.True(t, sel.IsNone())
}

func TestParseConflictPolicy(t *testing.T) {
	p, err := ParseConflictPolicy("")
	require.NoError(t, err)
	assert.Equal(t, StopWinsOnConflict, p)

	p, err = ParseConflictPolicy("Route-Wins")
	require.NoError(t, err)
	assert.Equal(t, RouteWinsOnConflict, p)

	_, err = ParseConflictPolicy("nearest")
	assert.Error(t, err)
}

func TestSelectionJSON(t *testing.T) {
	b, err := json.Marshal(Route("6A"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"route","value":"6A"}`, string(b))

	b, err = json.Marshal(None())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"none"}`, string(b))
}
