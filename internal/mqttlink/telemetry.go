package mqttlink

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/codec"
	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/types"
)

// Telemetry streams
const (
	streamLocalPose     = "local_pose"
	streamGlobalFix     = "global_fix"
	streamLocalVelocity = "local_velocity"
	streamBodyVelocity  = "body_velocity"
	streamState         = "state"
	streamExtendedState = "extended_state"
	streamReached       = "reached"
	streamMission       = "mission"
)

// missionList is the echo of the installed waypoint list.
type missionList struct {
	CurrentSeq int                `json:"current_seq" msgpack:"current_seq"`
	Waypoints  []mission.Waypoint `json:"waypoints" msgpack:"waypoints"`
}

type telemetry struct {
	client   Client
	codec    codec.Codec
	deviceID string
	qos      byte

	lastStatus *types.VehicleStatus
}

// NewTelemetry subscribes to every autopilot telemetry stream and posts the decoded
// payloads on the bus.
func NewTelemetry(client Client, c codec.Codec, deviceID string, qos byte) types.MessageHandler {
	return &telemetry{client: client, codec: c, deviceID: deviceID, qos: qos}
}

func (t *telemetry) Receive(message types.Message) {
}

func (t *telemetry) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	prefix := autopilotTopic(t.deviceID, "telemetry/")
	topic := prefix + "#"
	tok := t.client.Subscribe(topic, t.qos, func(_ mqtt.Client, m mqtt.Message) {
		stream := strings.TrimPrefix(m.Topic(), prefix)
		out, err := t.decode(stream, m.Payload())
		if err != nil {
			log.Printf("Telemetry: %v", err)
			return
		}
		if out.MessageType == "" {
			return
		}
		post(out)
	})
	if !tok.WaitTimeout(10 * time.Second) {
		log.Printf("Telemetry: subscribe to %s timed out", topic)
		return
	}
	if err := tok.Error(); err != nil {
		log.Printf("Telemetry: unable to subscribe to topic %s: %v", topic, err)
		return
	}

	<-ctx.Done()
	log.Println("Telemetry shutting down")
	t.client.Unsubscribe(topic).WaitTimeout(time.Second)
}

// decode turns one stream frame into a bus message. An empty MessageType means the
// frame carried nothing new.
func (t *telemetry) decode(stream string, payload []byte) (types.Message, error) {
	var kind string
	var out interface{}
	var err error

	switch stream {
	case streamLocalPose:
		var m types.LocalPose
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageLocalPose, m
	case streamGlobalFix:
		var m types.GlobalFix
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageGlobalFix, m
	case streamLocalVelocity:
		var m types.LocalVelocity
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageLocalVelocity, m
	case streamBodyVelocity:
		var m types.BodyVelocity
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageBodyVelocity, m
	case streamState:
		var m types.VehicleStatus
		err = t.codec.Unmarshal(payload, &m)
		if err == nil && t.lastStatus != nil && *t.lastStatus == m {
			return types.Message{}, nil
		}
		t.lastStatus = &m
		kind, out = types.MessageVehicleStatus, m
	case streamExtendedState:
		var m types.ExtendedState
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageExtendedState, m
	case streamReached:
		var m types.WaypointReached
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageWaypointReached, m
	case streamMission:
		var m missionList
		err = t.codec.Unmarshal(payload, &m)
		kind, out = types.MessageMissionEcho, types.MissionEcho{CurrentSeq: m.CurrentSeq, Count: len(m.Waypoints)}
	default:
		return types.Message{}, errors.Errorf("unknown stream %q", stream)
	}

	if err != nil {
		return types.Message{}, errors.WithMessagef(err, "could not decode %s", stream)
	}
	return types.CreateMessage(kind, t.deviceID, t.deviceID, out), nil
}
