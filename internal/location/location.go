// Package location provides one-shot device position providers for the
// waypoint planner.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Nitin1612/bus-tracking-app/internal/transit"
	"github.com/Nitin1612/bus-tracking-app/internal/waypoint"
)

// Fixed is a position snapshot the client already took, e.g. sent along with
// an HTTP request.
type Fixed transit.Coord

func (f Fixed) CurrentPosition(ctx context.Context) (transit.Coord, error) {
	if err := ctx.Err(); err != nil {
		return transit.Coord{}, err
	}
	return transit.Coord(f), nil
}

// FromRequest returns a Fixed provider when both components were supplied,
// and nil otherwise so the caller falls back to its default provider.
func FromRequest(lat, lon *float64) waypoint.Locator {
	if lat == nil || lon == nil {
		return nil
	}
	return Fixed{Lat: *lat, Lon: *lon}
}

type Request struct {
	Session string `json:"session"`
}

type Reply struct {
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Error string   `json:"error,omitempty"`
}

// NATSLocator asks the user's device for its position over NATS
// request/reply. The device answers on the reply inbox with a Reply.
type NATSLocator struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func NewNATSLocator(nc *nats.Conn, subject string, timeout time.Duration) *NATSLocator {
	if timeout <= 0 {
		timeout = waypoint.DefaultLocationTimeout
	}
	return &NATSLocator{nc: nc, subject: subject, timeout: timeout}
}

// ForSession binds the locator to one session's device.
func (l *NATSLocator) ForSession(sessionID string) waypoint.Locator {
	return waypoint.LocatorFunc(func(ctx context.Context) (transit.Coord, error) {
		return l.request(ctx, sessionID)
	})
}

func (l *NATSLocator) request(ctx context.Context, sessionID string) (transit.Coord, error) {
	if l == nil || l.nc == nil {
		return transit.Coord{}, waypoint.ErrLocationUnavailable
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	b, err := json.Marshal(Request{Session: sessionID})
	if err != nil {
		return transit.Coord{}, err
	}
	msg, err := l.nc.RequestWithContext(ctx, l.subject, b)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return transit.Coord{}, fmt.Errorf("%w: no device listening on %s", waypoint.ErrLocationUnavailable, l.subject)
		}
		return transit.Coord{}, fmt.Errorf("location request: %w", err)
	}
	return DecodeReply(msg.Data)
}

// DecodeReply parses a device reply.
func DecodeReply(data []byte) (transit.Coord, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return transit.Coord{}, fmt.Errorf("decode location reply: %w", err)
	}
	if r.Error != "" {
		return transit.Coord{}, fmt.Errorf("%w: device: %s", waypoint.ErrLocationUnavailable, r.Error)
	}
	if r.Lat == nil || r.Lon == nil || math.IsNaN(*r.Lat) || math.IsNaN(*r.Lon) {
		return transit.Coord{}, fmt.Errorf("%w: reply without position", waypoint.ErrLocationUnavailable)
	}
	return transit.Coord{Lat: *r.Lat, Lon: *r.Lon}, nil
}
