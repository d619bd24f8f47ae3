package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/diebengay/grvc-utils/internal/codec"
	"github.com/diebengay/grvc-utils/internal/commands"
	"github.com/diebengay/grvc-utils/internal/config"
	"github.com/diebengay/grvc-utils/internal/fixedwing"
	"github.com/diebengay/grvc-utils/internal/frames"
	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/mqttlink"
	"github.com/diebengay/grvc-utils/internal/status"
	"github.com/diebengay/grvc-utils/internal/supervisor"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

var (
	deafultFlagSet    = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	deviceID          = deafultFlagSet.String("device_id", "", "The provisioned device id")
	mqttBrokerAddress = deafultFlagSet.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	privateKeyPath    = deafultFlagSet.String("private_key", "", "The private key for MQTT authentication")
	configPath        = deafultFlagSet.String("config", "fixedwing.yaml", "Configuration file")
)

func main() {
	deafultFlagSet.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}
	if *mqttBrokerAddress != "" {
		cfg.MQTT.Broker = *mqttBrokerAddress
	}
	if *privateKeyPath != "" {
		cfg.MQTT.PrivateKey = *privateKeyPath
	}
	if cfg.DeviceID == "" {
		log.Fatal("device_id is required")
	}

	if cfg.Log.File != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxAge:     cfg.Log.MaxAge,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.Compress,
		}))
	}

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup

	payloadCodec, err := codec.ByName(cfg.MQTT.Codec)
	if err != nil {
		log.Fatal(err)
	}

	mqttClient, err := mqttlink.NewClient(cfg.MQTT, cfg.DeviceID)
	if err != nil {
		log.Fatal(err)
	}
	defer mqttClient.Disconnect(1000)

	gw := mqttlink.NewGateway(mqttClient, payloadCodec, cfg.DeviceID, cfg.MQTT.QoS, cfg.MQTT.CallTimeout)
	if err := gw.Start(); err != nil {
		log.Fatal(err)
	}

	offset := cfg.Frames.Offset
	frameManager := frames.New(frames.StaticLookup(types.Vec3{X: offset[0], Y: offset[1], Z: offset[2]}),
		cfg.Frames.HomeFrameID, cfg.Frames.PoseFrameID)
	cache := telemetry.New(cfg.Params.CacheSize)
	compiler := mission.NewCompiler(frameManager)
	sup := supervisor.New(cfg, cache, frameManager, compiler, gw)

	messagebus := make(chan types.Message, 100)
	var bus *types.MessageBus
	vehicle := fixedwing.New(cfg.DeviceID, cfg.Mission, cache, frameManager, compiler, sup,
		func(msg types.Message) { bus.Post(msg) })

	bus = types.NewMessageBus(
		messagebus,
		types.NewLogger(),
		cache,
		mqttlink.NewTelemetry(mqttClient, payloadCodec, cfg.DeviceID, cfg.MQTT.QoS),
		sup,
		commands.New(mqttClient, vehicle, cfg.DeviceID, cfg.MQTT.QoS, cfg.Mission.PreplannedDir),
		status.New(mqttClient, payloadCodec, cfg.DeviceID, cfg.MQTT.QoS, cfg.Status.ReportRate, cache, frameManager, sup),
	)

	go bus.Run(ctx, &wg)

	// wait for termination and close quit to signal all
	<-terminationSignals
	// cancel the main context
	log.Printf("Shutting down..")
	quitFunc()

	// wait until goroutines have done their cleanup
	log.Printf("Waiting for routines to finish...")
	wg.Wait()
	log.Printf("Signing off - BYE")
}
