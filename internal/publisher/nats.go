package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"transit-planner/internal/logging"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	logger      *slog.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	nc, err := nats.Connect(url,
		nats.Name("transit-planner"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return newPublisher(nc, prefix, logSubjects, m, logger), nil
}

func newPublisher(nc *nats.Conn, prefix string, logSubjects bool, m PublisherMetrics, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = logging.Discard()
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "transit"
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m, logger: logger}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Subject joins the configured prefix with sanitized tokens.
func (p *NATSPublisher) Subject(tokens ...string) string {
	parts := make([]string, 0, len(tokens)+1)
	parts = append(parts, p.prefix)
	for _, t := range tokens {
		parts = append(parts, subjectToken(t))
	}
	return strings.Join(parts, ".")
}

type PositionMessage struct {
	VehicleID string    `json:"vehicleId"`
	Line      string    `json:"line"`
	Toward    string    `json:"toward"`
	Next      string    `json:"next"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Bearing   float64   `json:"bearing"`
	Progress  float64   `json:"progress"`
}

// PublishPosition sends a simulated vehicle position on
// <prefix>.vehicles.<line>.<vehicle>.
func (p *NATSPublisher) PublishPosition(msg PositionMessage) error {
	return p.publish(p.Subject("vehicles", msg.Line, msg.VehicleID), msg)
}

// PlanEvent summarises a served trip plan.
type PlanEvent struct {
	PlanID       string    `json:"planId"`
	Timestamp    time.Time `json:"timestamp"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	Policy       string    `json:"policy"`
	Candidates   int       `json:"candidates"`
	Returned     int       `json:"returned"`
	TotalMinutes float64   `json:"totalMinutes,omitempty"`
	Lines        []string  `json:"lines,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// PublishPlan sends a plan event on <prefix>.plans.<policy>.
func (p *NATSPublisher) PublishPlan(evt PlanEvent) error {
	return p.publish(p.Subject("plans", evt.Policy), evt)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.logger.Debug("nats publish", slog.String("subject", subject))
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

// RequestHandler answers one request payload with a response payload.
type RequestHandler func(data []byte) ([]byte, error)

type errorReply struct {
	Error string `json:"error"`
}

// Serve answers requests on <prefix>.<name> in a queue group, so several
// planner instances share the load. Handler errors are returned to the
// requester as {"error": "..."}.
func (p *NATSPublisher) Serve(name string, h RequestHandler) (*nats.Subscription, error) {
	subject := p.Subject(name)
	sub, err := p.nc.QueueSubscribe(subject, p.prefix+"-"+subjectToken(name), func(msg *nats.Msg) {
		out, err := h(msg.Data)
		if err != nil {
			out, _ = json.Marshal(errorReply{Error: err.Error()})
		}
		if msg.Reply == "" {
			return
		}
		if rerr := msg.Respond(out); rerr != nil {
			p.logger.Warn("nats respond failed", slog.String("subject", subject), slog.String("error", rerr.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	p.logger.Info("serving nats requests", slog.String("subject", subject))
	return sub, nil
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
