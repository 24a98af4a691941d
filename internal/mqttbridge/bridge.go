package mqttbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/micro-ha/reolink-nvr/addon/internal/entity"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Options configures the broker connection and topic layout.
type Options struct {
	BrokerURL       string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	DiscoveryPrefix string
}

// Bridge publishes the entity set to Home Assistant over MQTT discovery:
// retained discovery configs per entity, per-entity state topics on every
// refresh, and one availability topic bound to the device session.
type Bridge struct {
	client pahomqtt.Client
	opts   Options
	logger *slog.Logger
}

// Connect dials the broker. The availability topic doubles as the last-will
// topic so HA marks everything unavailable when the add-on dies.
func Connect(opts Options, logger *slog.Logger) (*Bridge, error) {
	if opts.ClientID == "" {
		opts.ClientID = "reolink-nvr-addon"
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = "reolink_nvr"
	}
	if opts.DiscoveryPrefix == "" {
		opts.DiscoveryPrefix = "homeassistant"
	}

	bridge := &Bridge{opts: opts, logger: logger}

	clientOpts := pahomqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout).
		SetWill(bridge.AvailabilityTopic(), payloadOffline, 1, true)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}
	clientOpts.SetOnConnectHandler(func(pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", opts.BrokerURL)
	})
	clientOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "err", err)
	})

	client := pahomqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout to %s", opts.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	bridge.client = client
	return bridge, nil
}

// Close announces offline and disconnects.
func (b *Bridge) Close() {
	if b == nil || b.client == nil {
		return
	}
	_ = b.publish(b.AvailabilityTopic(), payloadOffline, true)
	b.client.Disconnect(250)
}

// AvailabilityTopic is the single availability topic shared by all entities.
func (b *Bridge) AvailabilityTopic() string {
	return b.opts.TopicPrefix + "/availability"
}

func (b *Bridge) stateTopic(e entity.Entity) string {
	return b.opts.TopicPrefix + "/" + e.UniqueID() + "/state"
}

func (b *Bridge) configTopic(e entity.Entity) string {
	return b.opts.DiscoveryPrefix + "/" + e.Component() + "/" + e.UniqueID() + "/config"
}

// PublishAvailability publishes the retained availability payload.
func (b *Bridge) PublishAvailability(_ context.Context, available bool) error {
	payload := payloadOffline
	if available {
		payload = payloadOnline
	}
	return b.publish(b.AvailabilityTopic(), payload, true)
}

// PublishDiscovery publishes a retained discovery config per entity.
func (b *Bridge) PublishDiscovery(_ context.Context, entities []entity.Entity) error {
	for _, e := range entities {
		payload, err := discoveryPayload(e, b.stateTopic(e), b.AvailabilityTopic())
		if err != nil {
			return err
		}
		if err := b.publish(b.configTopic(e), payload, true); err != nil {
			return err
		}
	}
	return nil
}

// PublishRemovals clears the retained discovery config of removed entities.
func (b *Bridge) PublishRemovals(_ context.Context, entities []entity.Entity) error {
	for _, e := range entities {
		if err := b.publish(b.configTopic(e), "", true); err != nil {
			return err
		}
	}
	return nil
}

// PublishStates publishes the current state of every entity.
func (b *Bridge) PublishStates(_ context.Context, entities []entity.Entity) error {
	for _, e := range entities {
		if err := b.publish(b.stateTopic(e), statePayload(e), false); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) publish(topic string, payload any, retained bool) error {
	token := b.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish timeout on %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish on %s: %w", topic, err)
	}
	return nil
}
