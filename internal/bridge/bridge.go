// Package bridge wires the BL-NET entities to their driver, the entity
// platform, the HTTP API and Home Assistant discovery.
package bridge

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xi784/ha-blnet/internal/api"
	"github.com/xi784/ha-blnet/internal/blnet"
	"github.com/xi784/ha-blnet/internal/entity"
	"github.com/xi784/ha-blnet/internal/hass"
	"github.com/xi784/ha-blnet/internal/httpserver"
	"github.com/xi784/ha-blnet/internal/metrics"
	"github.com/xi784/ha-blnet/internal/mqtt"
	"github.com/xi784/ha-blnet/internal/platform"
	"github.com/xi784/ha-blnet/internal/version"
)

// binder is implemented by drivers that map channel ids to labels.
type binder interface {
	Bind(channelID, label string)
}

// Bridge is a configured, not yet running, service.
type Bridge struct {
	cfg       *Config
	comm      blnet.Communication
	mqttComm  *blnet.MQTTCommunication
	platform  *platform.Platform
	metrics   *metrics.Metrics
	publisher *hass.Publisher
	api       *api.Server
	broker    *brokerRef
	client    *mqtt.Client
}

// New builds a Bridge from cfg. No connections are made until Run.
func New(cfg *Config) (*Bridge, error) {
	b := &Bridge{
		cfg:     cfg,
		metrics: metrics.New(),
		broker:  &brokerRef{},
	}

	switch cfg.Driver {
	case DriverCache:
		b.comm = blnet.NewCache()
	case DriverMQTT:
		b.mqttComm = blnet.NewMQTTCommunication(b.broker, cfg.MQTT.TopicPrefix)
		b.comm = b.mqttComm
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, cfg.Driver)
	}

	if bd, ok := b.comm.(binder); ok {
		for _, out := range cfg.Outputs {
			bd.Bind(out.ChannelID, out.DeviceLabel)
		}
	}

	entities, err := entity.Setup(cfg.Outputs, b.comm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	b.platform = platform.New(b.metrics)
	if err := b.platform.Register(entities...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	if cfg.Hass.Enabled {
		b.publisher = hass.NewPublisher(b.broker, b.platform, hass.Config{
			DiscoveryPrefix: cfg.Hass.DiscoveryPrefix,
			NodeID:          cfg.Hass.NodeID,
			DeviceName:      cfg.Hass.DeviceName,
			SoftwareVersion: version.Version,
		})
		b.platform.AddListener(b.publisher.OnStateChange)
	}

	b.api = api.NewServer(b.platform, api.Options{
		Metrics:        b.metrics.Handler(),
		AllowedOrigins: cfg.CORSOrigins,
		RequestLogging: cfg.RequestLogging,
	})

	log.Printf("using %s", b.comm)
	return b, nil
}

// Handler returns the HTTP API.
func (b *Bridge) Handler() http.Handler {
	return b.api
}

// Platform returns the entity platform.
func (b *Bridge) Platform() *platform.Platform {
	return b.platform
}

// Run connects to the broker if needed, then polls entities and serves the
// HTTP API until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	if b.cfg.NeedsMQTT() {
		if err := b.connect(); err != nil {
			return err
		}
		defer b.disconnect()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.platform.Run(ctx, b.cfg.PollInterval)
	})
	g.Go(func() error {
		return httpserver.Serve(ctx, httpserver.Address(b.cfg), b.api)
	})
	return g.Wait()
}

func (b *Bridge) connect() error {
	mqttCfg := mqtt.Config{
		ServerURL: b.cfg.MQTT.Server,
		ClientID:  b.cfg.MQTT.ClientID,
		Username:  b.cfg.MQTT.Username,
		Password:  b.cfg.MQTT.Password,
		OnConnect: b.onConnect,
	}
	if b.publisher != nil {
		mqttCfg.Will = &mqtt.Will{
			Topic:    b.publisher.AvailabilityTopic(),
			Payload:  hass.PayloadOffline,
			Retained: true,
		}
	}

	client, err := mqtt.NewClient(mqttCfg)
	if err != nil {
		return fmt.Errorf("failed to create MQTT client: %w", err)
	}
	b.client = client
	return nil
}

// onConnect runs on every (re)connect, since subscriptions do not survive
// a clean session.
func (b *Bridge) onConnect(client *mqtt.Client) {
	b.broker.set(client)

	if b.mqttComm != nil {
		if err := b.mqttComm.Subscribe(); err != nil {
			log.Printf("warning: failed to subscribe to BL-NET state: %v", err)
		}
	}

	if b.publisher != nil {
		if err := b.publisher.Subscribe(); err != nil {
			log.Printf("warning: failed to subscribe to Home Assistant topics: %v", err)
		}
		if err := b.publisher.Announce(); err != nil {
			log.Printf("warning: %v", err)
		}
	}
}

func (b *Bridge) disconnect() {
	if b.publisher != nil {
		if err := b.publisher.Offline(); err != nil {
			log.Printf("warning: failed to publish offline status: %v", err)
		}
	}
	if b.client != nil {
		b.client.Disconnect(250)
	}
}

// brokerRef forwards to the most recently connected MQTT client.
type brokerRef struct {
	client atomic.Pointer[mqtt.Client]
}

func (r *brokerRef) set(client *mqtt.Client) {
	r.client.Store(client)
}

func (r *brokerRef) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	client := r.client.Load()
	if client == nil {
		return mqtt.ErrNotConnected
	}
	return client.Publish(topic, qos, retained, payload)
}

func (r *brokerRef) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	client := r.client.Load()
	if client == nil {
		return mqtt.ErrNotConnected
	}
	return client.Subscribe(topic, qos, handler)
}

func (r *brokerRef) IsConnected() bool {
	client := r.client.Load()
	return client != nil && client.IsConnected()
}
