package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
	"github.com/Nitin1612/bus-tracking-app/internal/waypoint"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("bus-tracking-finder"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return NewWithConn(nc, prefix, logSubjects, m), nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(nc *nats.Conn, prefix string, logSubjects bool, m PublisherMetrics) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "finder"
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}
}

// Conn exposes the connection for request/reply users such as the location provider.
func (p *NATSPublisher) Conn() *nats.Conn { return p.nc }

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type SelectionMessage struct {
	Session   string    `json:"session"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	PathClear = "clear"
	PathDraw  = "draw"
)

type PathMessage struct {
	Session        string         `json:"session"`
	Action         string         `json:"action"`
	Origin         *transit.Coord `json:"origin,omitempty"`
	Destination    *transit.Coord `json:"destination,omitempty"`
	DistanceMeters float64        `json:"distanceMeters,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (p *NATSPublisher) SelectionSubject(sessionID string) string {
	return fmt.Sprintf("%s.selection.%s", p.prefix, subjectToken(sessionID))
}

func (p *NATSPublisher) PathSubject(sessionID string) string {
	return fmt.Sprintf("%s.path.%s", p.prefix, subjectToken(sessionID))
}

func (p *NATSPublisher) PublishSelection(sessionID string, sel selection.Selection) error {
	return p.publish(p.SelectionSubject(sessionID), SelectionMessage{
		Session:   sessionID,
		Kind:      sel.Kind().String(),
		Value:     sel.Value(),
		Timestamp: time.Now().UTC(),
	})
}

func (p *NATSPublisher) PublishPath(sessionID string, msg PathMessage) error {
	msg.Session = sessionID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return p.publish(p.PathSubject(sessionID), msg)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Renderer adapts the publisher to the planner's map collaborator for one
// session. Publish failures are logged, never returned to the planner.
func (p *NATSPublisher) Renderer(sessionID string) waypoint.Renderer {
	return &sessionRenderer{pub: p, session: sessionID}
}

type sessionRenderer struct {
	pub     *NATSPublisher
	session string
}

func (r *sessionRenderer) SelectionChanged(sel selection.Selection) {
	if err := r.pub.PublishSelection(r.session, sel); err != nil {
		log.Printf("publish selection for %s: %v", r.session, err)
	}
}

func (r *sessionRenderer) ClearPath() {
	if err := r.pub.PublishPath(r.session, PathMessage{Action: PathClear}); err != nil {
		log.Printf("publish path clear for %s: %v", r.session, err)
	}
}

func (r *sessionRenderer) DrawPath(pair waypoint.Pair) {
	msg := PathMessage{
		Action:         PathDraw,
		Origin:         &pair.Origin,
		Destination:    &pair.Destination,
		DistanceMeters: pair.DistanceMeters(),
	}
	if err := r.pub.PublishPath(r.session, msg); err != nil {
		log.Printf("publish path draw for %s: %v", r.session, err)
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
