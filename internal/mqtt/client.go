package mqtt

import (
	"fmt"
	"log"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps a paho client with asynchronous connect and retry
type Client struct {
	client mqtt.Client
}

// Will is the message the broker publishes when the client disappears
type Will struct {
	Topic    string
	Payload  string
	Retained bool
}

// Config holds MQTT client configuration
type Config struct {
	ServerURL         string
	ClientID          string
	Username          string
	Password          string
	Will              *Will
	MaxRetries        int           // Maximum number of connection retries (0 = infinite)
	InitialRetryDelay time.Duration // Initial delay between retries
	MaxRetryDelay     time.Duration // Maximum delay between retries
	OnConnect         func(*Client) // Callback to execute when connected
}

// ValidateServerURL checks that serverURL is an mqtt:// URL
func ValidateServerURL(serverURL string) error {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidServerURL, err)
	}

	if parsedURL.Scheme != "mqtt" {
		return fmt.Errorf("%w: must use mqtt:// scheme", ErrInvalidServerURL)
	}

	return nil
}

// NewClient creates a new MQTT client with the given configuration.
// The client connects asynchronously and retries with exponential backoff
// if the initial connection fails.
func NewClient(config Config) (*Client, error) {
	if err := ValidateServerURL(config.ServerURL); err != nil {
		return nil, err
	}

	initialDelay := config.InitialRetryDelay
	if initialDelay == 0 {
		initialDelay = time.Second
	}
	maxDelay := config.MaxRetryDelay
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.ServerURL)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	if config.Will != nil {
		opts.SetWill(config.Will.Topic, config.Will.Payload, 1, config.Will.Retained)
	}
	opts.SetCleanSession(true)
	// Handlers publish from within callbacks
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxDelay)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("connected to MQTT broker at %s", config.ServerURL)

		if config.OnConnect != nil {
			config.OnConnect(&Client{client: client})
		}
	})

	client := mqtt.NewClient(opts)

	go func() {
		delay := initialDelay
		attempt := 0
		for {
			if token := client.Connect(); token.Wait() && token.Error() != nil {
				attempt++
				if config.MaxRetries > 0 && attempt >= config.MaxRetries {
					log.Printf("failed to connect to MQTT broker after %d attempts, giving up: %v", attempt, token.Error())
					return
				}

				log.Printf("failed to connect to MQTT broker (attempt %d): %v. Retrying in %v...", attempt, token.Error(), delay)
				time.Sleep(delay)

				delay = delay * 2
				if delay > maxDelay {
					delay = maxDelay
				}
				continue
			}
			return
		}
	}()

	return &Client{client: client}, nil
}

// Publish publishes a message to the specified topic
func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if token := c.client.Publish(topic, qos, retained, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, token.Error())
	}

	return nil
}

// Subscribe subscribes to a topic with the given message handler
func (c *Client) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	wrappedHandler := func(client mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	}

	if token := c.client.Subscribe(topic, qos, wrappedHandler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("%w %s: %w", ErrSubscribeFailed, topic, token.Error())
	}

	return nil
}

// IsConnected returns true if the client is connected to the MQTT broker
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Disconnect disconnects from the MQTT broker
func (c *Client) Disconnect(quiesce uint) {
	if c.IsConnected() {
		c.client.Disconnect(quiesce)
		log.Printf("disconnected from MQTT broker")
	}
}
