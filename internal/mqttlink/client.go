// Package mqttlink reaches the autopilot bridge over MQTT: telemetry streams in,
// request/response calls out.
package mqttlink

import (
	"crypto/tls"
	"fmt"
	"io/ioutil"
	"log"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/config"
)

// Client is the part of mqtt.Client the link needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

func autopilotTopic(deviceID, suffix string) string {
	return fmt.Sprintf("/devices/%s/autopilot/%s", deviceID, suffix)
}

// NewClient connects to the broker. When a private key is configured the password is
// a signed JWT, otherwise the connection is anonymous.
func NewClient(cfg config.MQTT, deviceID string) (mqtt.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("fixedwing-%s", deviceID)
	}
	log.Printf("MQTT: address: %v, client ID: %s", cfg.Broker, clientID)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetAutoReconnect(true).
		SetProtocolVersion(4) // Use MQTT 3.1.1

	if cfg.PrivateKey != "" {
		pass, err := signPassword(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetPassword(pass)
	}
	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client := mqtt.NewClient(opts)
	for attempt := 1; ; attempt++ {
		log.Printf("MQTT: connecting...")
		tok := client.Connect()
		if !tok.WaitTimeout(5 * time.Second) {
			log.Println("MQTT: connection timeout")
			if attempt >= 5 {
				return nil, errors.Errorf("Could not connect to %s", cfg.Broker)
			}
			continue
		}
		if err := tok.Error(); err != nil {
			return nil, errors.WithMessagef(err, "Could not connect to %s", cfg.Broker)
		}
		log.Printf("MQTT: connected")
		return client, nil
	}
}

// generate JWT as the MQTT password
func signPassword(cfg config.MQTT) (string, error) {
	keyData, err := ioutil.ReadFile(cfg.PrivateKey)
	if err != nil {
		return "", errors.WithMessage(err, "Could not read private key")
	}

	var key interface{}
	switch cfg.Algorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Errorf("Unknown algorithm: %s", cfg.Algorithm)
	}
	if err != nil {
		return "", errors.WithMessage(err, "Could not parse private key")
	}

	t := time.Now()
	token := jwt.NewWithClaims(jwt.GetSigningMethod(cfg.Algorithm), &jwt.StandardClaims{
		IssuedAt:  t.Unix(),
		ExpiresAt: t.Add(24 * time.Hour).Unix(),
		Audience:  cfg.Audience,
	})
	return token.SignedString(key)
}
