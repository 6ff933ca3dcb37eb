package events

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// allSubjects enumerates every subject the forwarder mirrors.
var allSubjects = []Subject{
	SubjectOrdersLoaded,
	SubjectOrderChanged,
	SubjectTransitionFailed,
	SubjectTranslatorsChanged,
}

// Forwarder mirrors bus events onto NATS so back-office views running in
// other processes (client CRUD, translator roster) see the same changes.
// Forwarding is best-effort: a publish failure is logged and dropped.
type Forwarder struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
	unsubs []func()
}

// NewForwarder creates a forwarder publishing under prefix, e.g. a
// prefix of "orderdesk" publishes on "orderdesk.orders.changed".
func NewForwarder(conn *nats.Conn, prefix string, logger *slog.Logger) *Forwarder {
	if prefix == "" {
		prefix = "orderdesk"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{conn: conn, prefix: prefix, logger: logger}
}

// Attach subscribes the forwarder to every subject on the bus.
func (f *Forwarder) Attach(bus *Bus) {
	for _, subject := range allSubjects {
		f.unsubs = append(f.unsubs, bus.Subscribe(subject, f.forward))
	}
}

// Detach unsubscribes from the bus. Pending events already queued are
// still forwarded.
func (f *Forwarder) Detach() {
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil
}

func (f *Forwarder) forward(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.logger.Error("Marshal event for NATS", slog.String("error", err.Error()))
		return
	}
	subject := f.prefix + "." + string(ev.EventSubject())
	if err := f.conn.Publish(subject, data); err != nil {
		f.logger.Warn("Forward event to NATS failed",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
