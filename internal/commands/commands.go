// Package commands turns operator messages received over MQTT into vehicle commands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/missionfile"
	"github.com/diebengay/grvc-utils/internal/mqttlink"
	"github.com/diebengay/grvc-utils/internal/types"
)

// Controller is the vehicle surface commands are forwarded to.
type Controller interface {
	TakeOff(height float64) (string, error)
	Land() (string, error)
	GoToWaypoint(p types.Pose) (string, error)
	GoToWaypointGeo(g types.GeoPose) (string, error)
	SetMission(elements []mission.Element) (string, error)
	RecoverFromManual() (string, error)
	SetHome(useAltitude bool) error
}

type commandHandler struct {
	client        mqttlink.Client
	controller    Controller
	deviceID      string
	qos           byte
	preplannedDir string
}

func New(client mqttlink.Client, controller Controller, deviceID string, qos byte, preplannedDir string) types.MessageHandler {
	return &commandHandler{client, controller, deviceID, qos, preplannedDir}
}

func (c *commandHandler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	topic := fmt.Sprintf("/devices/%s/commands/fixedwing", c.deviceID)
	tok := c.client.Subscribe(topic, c.qos, func(_ mqtt.Client, m mqtt.Message) {
		c.handleCommand(m.Payload())
	})
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		log.Printf("Unable to subscribe to topic '%s': %v", topic, tok.Error())
		return
	}

	<-ctx.Done()
	c.client.Unsubscribe(topic)
	log.Println("Commands shutting down")
}

func (c *commandHandler) Receive(message types.Message) {
}

type takeOff struct {
	Height float64 `json:"height"`
}

type goToWaypoint struct {
	Pose types.Pose `json:"pose"`
}

type goToWaypointGeo struct {
	Pose types.GeoPose `json:"pose"`
}

type setMission struct {
	Elements []mission.Element `json:"elements"`
}

type setHome struct {
	UseAltitude bool `json:"use_altitude"`
}

// Reply acknowledges one operator message: the command id on acceptance, the error
// otherwise.
type Reply struct {
	Request   string `json:"request"`
	Accepted  bool   `json:"accepted"`
	CommandID string `json:"command_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (c *commandHandler) handleCommand(payload []byte) {
	var msg types.StringMessage
	err := json.Unmarshal(payload, &msg)
	if err != nil {
		log.Printf("Could not unmarshal payload: %v", err)
		return
	}

	id, err := c.dispatch(msg)
	if err != nil {
		log.Printf("Command %s rejected: %v", msg.MessageType, err)
	}
	c.reply(msg, id, err)
}

func (c *commandHandler) dispatch(msg types.StringMessage) (string, error) {
	switch msg.MessageType {
	case "take-off":
		var m takeOff
		if err := unmarshal(msg, &m); err != nil {
			return "", err
		}
		return c.controller.TakeOff(m.Height)
	case "land":
		return c.controller.Land()
	case "go-to-waypoint":
		var m goToWaypoint
		if err := unmarshal(msg, &m); err != nil {
			return "", err
		}
		return c.controller.GoToWaypoint(m.Pose)
	case "go-to-waypoint-geo":
		var m goToWaypointGeo
		if err := unmarshal(msg, &m); err != nil {
			return "", err
		}
		return c.controller.GoToWaypointGeo(m.Pose)
	case "set-mission":
		var m setMission
		if err := unmarshal(msg, &m); err != nil {
			return "", err
		}
		return c.controller.SetMission(m.Elements)
	case "execute-preplanned":
		m, err := missionfile.Load(c.preplannedDir, c.deviceID)
		if err != nil {
			return "", errors.WithMessage(err, "Could not load preplanned mission")
		}
		log.Printf("Executing preplanned mission '%s' (%d elements)", m.Name, len(m.Elements))
		return c.controller.SetMission(m.Elements)
	case "recover-from-manual":
		return c.controller.RecoverFromManual()
	case "set-home":
		var m setHome
		if err := unmarshal(msg, &m); err != nil {
			return "", err
		}
		return "", c.controller.SetHome(m.UseAltitude)
	}
	return "", errors.Errorf("Unknown command: %s", msg.MessageType)
}

func unmarshal(msg types.StringMessage, v interface{}) error {
	if msg.Message == "" {
		return errors.Errorf("%s: empty message", msg.MessageType)
	}
	if err := json.Unmarshal([]byte(msg.Message), v); err != nil {
		return errors.WithMessagef(err, "Could not unmarshal %s", msg.MessageType)
	}
	return nil
}

func (c *commandHandler) reply(request types.StringMessage, commandID string, err error) {
	r := Reply{Request: request.ID, Accepted: err == nil, CommandID: commandID}
	if err != nil {
		r.Error = err.Error()
	}
	out := types.CreateMessage(request.MessageType+"-reply", c.deviceID, request.From, r)
	sm, jerr := out.ToJsonMessage()
	if jerr != nil {
		log.Printf("Could not marshal reply: %v", jerr)
		return
	}
	b, _ := json.Marshal(sm)
	topic := fmt.Sprintf("/devices/%s/events/fixedwing", c.deviceID)
	c.client.Publish(topic, c.qos, false, b)
}
