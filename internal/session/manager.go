package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vibe-virtuoso/backend/internal/dispatch"
	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/landmark"
	"github.com/vibe-virtuoso/backend/internal/timers"
)

var ErrUnknownSession = errors.New("unknown session")

type Config struct {
	Weights         gesture.Weights
	Cooldowns       map[gesture.Kind]time.Duration
	DefaultCooldown time.Duration
	// MaxFramePixels caps width*height of an incoming frame. Zero means
	// no limit.
	MaxFramePixels int
}

func DefaultConfig() Config {
	return Config{
		Weights:         gesture.DefaultWeights(),
		Cooldowns:       gesture.DefaultCooldowns(),
		DefaultCooldown: 250 * time.Millisecond,
		MaxFramePixels:  3840 * 2160,
	}
}

// Manager owns every streaming session. Messages for one session must be
// handled sequentially by the caller (one reader per connection); different
// sessions may be handled in parallel.
type Manager struct {
	cfg        Config
	store      *Store
	detector   landmark.Detector
	classifier *gesture.Classifier
	registry   *instrument.Registry
	dispatcher *dispatch.Dispatcher
	now        func() time.Time
}

func NewManager(cfg Config, detector landmark.Detector, registry *instrument.Registry, dispatcher *dispatch.Dispatcher) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      NewStore(),
		detector:   detector,
		classifier: gesture.NewClassifier(cfg.Weights),
		registry:   registry,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Connect registers a new session on the default instrument.
func (m *Manager) Connect() *ConnectionSession {
	cs := newConnectionSession(uuid.NewString(), m.now(), gesture.NewPolicy(m.cfg.Cooldowns, m.cfg.DefaultCooldown))
	m.store.Add(cs)
	gaugeSessions.Inc()
	log.Printf("session %s connected (%d active)", cs.ID, m.store.Count())
	return cs
}

// Disconnect drops the session and everything it owned. Frames still being
// processed for it are discarded.
func (m *Manager) Disconnect(id string) {
	cs, ok := m.store.Remove(id)
	if !ok {
		return
	}
	cs.close()
	gaugeSessions.Dec()
	log.Printf("session %s disconnected (%d active)", id, m.store.Count())
}

func (m *Manager) Get(id string) (*ConnectionSession, bool) {
	return m.store.Get(id)
}

func (m *Manager) Snapshots() []Snapshot {
	return m.store.GetAll()
}

func (m *Manager) Count() int {
	return m.store.Count()
}

// Handle decodes one raw client message and returns the reply, or nil when
// the message produces none. Frame errors are logged and swallowed; control
// errors become an error reply.
func (m *Manager) Handle(ctx context.Context, id string, raw []byte) any {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return m.errorReply(fmt.Errorf("invalid message: %w", err))
	}

	switch in.Type {
	case MsgVideoFrame:
		reply, err := m.Frame(ctx, id, in.Image, in.Timestamp)
		if err != nil {
			log.Printf("session %s: dropping frame: %v", id, err)
			return nil
		}
		return reply
	case MsgInstrumentChange:
		reply, err := m.ChangeInstrument(id, in.Instrument)
		if err != nil {
			return m.errorReply(err)
		}
		return reply
	case MsgPing:
		reply, err := m.Ping(id)
		if err != nil {
			return m.errorReply(err)
		}
		return reply
	case "":
		return m.errorReply(errors.New("invalid message: missing type"))
	}
	return m.errorReply(fmt.Errorf("unknown message type %q", in.Type))
}

// Frame decodes, detects and classifies one frame. It returns a nil reply
// when nothing was detected or the session went away mid-frame.
func (m *Manager) Frame(ctx context.Context, id, image, timestamp string) (any, error) {
	cs, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	metricFrames.Inc()

	f, err := DecodeFrame(image, m.cfg.MaxFramePixels)
	if err != nil {
		metricFramesDropped.WithLabelValues("decode").Inc()
		return nil, err
	}

	hands, err := m.detector.Detect(ctx, f)
	if err != nil {
		metricFramesDropped.WithLabelValues("detect").Inc()
		return nil, fmt.Errorf("detect: %w", err)
	}
	if len(hands) > landmark.MaxHands {
		hands = hands[:landmark.MaxHands]
	}

	now := m.now()
	gestures := make([]gesture.Event, 0, len(hands))
	points := make([][]gesture.Point3, 0, len(hands))
	primary := -1
	for _, h := range hands {
		pts := make([]gesture.Point3, len(h.Points))
		copy(pts, h.Points[:])
		points = append(points, pts)

		ev, ok := m.classifier.Classify(h, id, now)
		if !ok {
			continue
		}
		gestures = append(gestures, ev)
		if primary < 0 || ev.Confidence > gestures[primary].Confidence {
			primary = len(gestures) - 1
		}
	}

	if timestamp == "" {
		timestamp = now.UTC().Format(time.RFC3339Nano)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.state != Connected {
		return nil, nil
	}
	cs.frames++
	inst := cs.instrument

	if primary < 0 {
		if len(hands) == 0 {
			return nil, nil
		}
		return HandLandmarks{
			Type:        MsgHandLandmarks,
			Landmarks:   points,
			ImageWidth:  f.Width,
			ImageHeight: f.Height,
			Instrument:  inst,
			Timestamp:   timestamp,
		}, nil
	}

	best := gestures[primary]
	cs.lastBroadcast = best.Kind
	cs.hasBroadcast = true
	metricReported.WithLabelValues(best.Kind.String()).Inc()

	triggered := cs.policy.Observe(best.Kind, now)
	if triggered {
		cs.triggers++
		metricTriggered.WithLabelValues(best.Kind.String()).Inc()
		m.dispatcher.Dispatch(best, inst, cs.timers)
	}

	return GestureDetected{
		Type:        MsgGestureDetected,
		Gestures:    gestures,
		Landmarks:   points,
		ImageWidth:  f.Width,
		ImageHeight: f.Height,
		Instrument:  inst,
		Timestamp:   timestamp,
		Gesture:     best.Kind.String(),
		Triggered:   triggered,
	}, nil
}

// ChangeInstrument switches the session's instrument. Unknown names leave
// the session untouched.
func (m *Manager) ChangeInstrument(id, name string) (any, error) {
	cs, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	spec, err := m.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	if cs.instrument != spec.Name {
		// Pending note-offs belong to the previous instrument.
		cs.timers.Stop()
		cs.timers = timers.NewGroup()
		cs.instrument = spec.Name
	}
	cs.mu.Unlock()

	log.Printf("session %s: instrument changed to %s", id, spec.Name)
	return InstrumentChanged{
		Type:       MsgInstrumentChanged,
		Instrument: spec.Name,
		Timestamp:  m.stamp(),
	}, nil
}

func (m *Manager) Ping(id string) (any, error) {
	if _, ok := m.store.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return Pong{Type: MsgPong, Timestamp: m.stamp()}, nil
}

func (m *Manager) errorReply(err error) ErrorMessage {
	return ErrorMessage{Type: MsgError, Error: err.Error(), Timestamp: m.stamp()}
}

func (m *Manager) stamp() string {
	return m.now().UTC().Format(time.RFC3339Nano)
}
