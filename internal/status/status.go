// Package status publishes the vehicle report and command progress over MQTT.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/codec"
	"github.com/diebengay/grvc-utils/internal/flightstate"
	"github.com/diebengay/grvc-utils/internal/frames"
	"github.com/diebengay/grvc-utils/internal/mqttlink"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

const retain = false

// StateSource provides the inferred vehicle state.
type StateSource interface {
	State() flightstate.State
	Autopilot() autopilot.Type
}

// Report is the periodic vehicle summary. The *Updated flags tell which groups
// changed since the previous report.
type Report struct {
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
	MessageID string `json:"message_id" msgpack:"message_id"`

	LocationUpdated  bool    `json:"location_updated" msgpack:"location_updated"`
	Lat              float64 `json:"lat" msgpack:"lat"`
	Lon              float64 `json:"lon" msgpack:"lon"`
	Altitude         float64 `json:"altitude" msgpack:"altitude"`
	Heading          float64 `json:"heading" msgpack:"heading"`
	AltitudeFromHome float64 `json:"altitude_from_home" msgpack:"altitude_from_home"`
	DistanceFromHome float64 `json:"distance_from_home" msgpack:"distance_from_home"`
	HomeRegistered   bool    `json:"home_registered" msgpack:"home_registered"`

	StateUpdated bool   `json:"state_updated" msgpack:"state_updated"`
	State        string `json:"state" msgpack:"state"`
	Autopilot    string `json:"autopilot" msgpack:"autopilot"`
	Armed        bool   `json:"armed" msgpack:"armed"`
	Mode         string `json:"mode" msgpack:"mode"`
}

type publisher struct {
	client   mqttlink.Client
	codec    codec.Codec
	deviceID string
	qos      byte
	interval time.Duration
	cache    *telemetry.Cache
	frames   *frames.Manager
	source   StateSource
	inbox    chan types.Message

	mu              sync.Mutex
	sent            bool
	locationUpdated bool
	stateUpdated    bool
}

func New(client mqttlink.Client, c codec.Codec, deviceID string, qos byte, rate float64,
	cache *telemetry.Cache, fm *frames.Manager, source StateSource) types.MessageHandler {
	return newPublisher(client, c, deviceID, qos, rate, cache, fm, source)
}

func newPublisher(client mqttlink.Client, c codec.Codec, deviceID string, qos byte, rate float64,
	cache *telemetry.Cache, fm *frames.Manager, source StateSource) *publisher {
	interval := time.Second
	if rate > 0 {
		interval = time.Duration(float64(time.Second) / rate)
	}
	return &publisher{
		client:   client,
		codec:    c,
		deviceID: deviceID,
		qos:      qos,
		interval: interval,
		cache:    cache,
		frames:   fm,
		source:   source,
		inbox:    make(chan types.Message, 32),
		sent:     true,
	}
}

func (p *publisher) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Status shutting down")
			return
		case msg := <-p.inbox:
			p.publishEvent(msg)
		case <-ticker.C:
			if r, ok := p.report(); ok {
				p.publishReport(r)
			}
		}
	}
}

func (p *publisher) Receive(message types.Message) {
	switch message.MessageType {
	case types.MessageGlobalFix, types.MessageLocalPose:
		p.mark(true, false)
	case types.MessageVehicleStatus, types.MessageExtendedState:
		p.mark(false, true)
	case types.MessageFlightState:
		p.mark(false, true)
		p.enqueue(message)
	case types.MessageCommandStatus:
		p.enqueue(message)
	}
}

func (p *publisher) mark(location, state bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = false
	p.locationUpdated = p.locationUpdated || location
	p.stateUpdated = p.stateUpdated || state
}

func (p *publisher) enqueue(message types.Message) {
	select {
	case p.inbox <- message:
	default:
		log.Printf("Status: event queue full, dropping %s", message.MessageType)
	}
}

// report builds the next summary, or reports false when nothing changed since the
// previous one.
func (p *publisher) report() (Report, bool) {
	p.mu.Lock()
	if p.sent {
		// there's no new data to send
		p.mu.Unlock()
		return Report{}, false
	}
	r := Report{LocationUpdated: p.locationUpdated, StateUpdated: p.stateUpdated}
	p.sent = true
	p.locationUpdated = false
	p.stateUpdated = false
	p.mu.Unlock()

	snap := p.cache.Snapshot()
	r.Timestamp = time.Now().UnixNano() / 1000
	r.MessageID = uuid.New().String()
	if snap.HasFix() {
		r.Lat = snap.Fix.Position.Latitude
		r.Lon = snap.Fix.Position.Longitude
		r.Altitude = snap.Fix.Position.Altitude
		if reg, ok := p.frames.Registration(); ok {
			r.HomeRegistered = true
			r.AltitudeFromHome = snap.Fix.Position.Altitude - reg.Origin.Altitude
			r.DistanceFromHome, _ = p.frames.DistanceFromHome(snap.Fix.Position)
		}
	}
	if snap.HasPose() {
		r.Heading = snap.Pose.Orientation.Heading()
	}
	r.State = p.source.State().String()
	r.Autopilot = p.source.Autopilot().String()
	r.Armed = snap.Status.Armed
	r.Mode = snap.Status.Mode
	return r, true
}

func (p *publisher) publishReport(r Report) {
	b, err := p.codec.Marshal(r)
	if err != nil {
		log.Printf("Status: could not marshal report: %v", err)
		return
	}
	topic := fmt.Sprintf("/devices/%s/events/telemetry", p.deviceID)
	p.client.Publish(topic, p.qos, retain, b)
}

// publishEvent forwards a bus message in the operator envelope.
func (p *publisher) publishEvent(msg types.Message) {
	sm, err := msg.ToJsonMessage()
	if err != nil {
		log.Printf("Status: could not marshal %s: %v", msg.MessageType, err)
		return
	}
	sm.From = p.deviceID
	b, err := json.Marshal(sm)
	if err != nil {
		log.Printf("Status: could not marshal %s: %v", msg.MessageType, err)
		return
	}
	topic := fmt.Sprintf("/devices/%s/events/fixedwing", p.deviceID)
	p.client.Publish(topic, p.qos, retain, b)
}
