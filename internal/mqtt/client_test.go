package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
)

// fakeToken is a completed paho token
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakePahoClient answers every publish and subscribe with err. Methods
// not overridden here are not used by Client.
type fakePahoClient struct {
	paho.Client
	err error
}

func (c *fakePahoClient) IsConnected() bool { return true }

func (c *fakePahoClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	return &fakeToken{err: c.err}
}

func (c *fakePahoClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	return &fakeToken{err: c.err}
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "mqtt scheme", url: "mqtt://localhost:1883", wantErr: false},
		{name: "http scheme", url: "http://localhost:1883", wantErr: true},
		{name: "no scheme", url: "localhost", wantErr: true},
		{name: "unparseable", url: "mqtt://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidServerURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Config{ServerURL: "http://localhost:1883"})
	assert.ErrorIs(t, err, ErrInvalidServerURL)
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{}

	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish("topic", 0, false, "x"), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe("topic", 0, func(string, []byte) {}), ErrNotConnected)

	// Should not panic without a connection
	c.Disconnect(0)
}

func TestClient_ErrorsKeepCause(t *testing.T) {
	errBroker := errors.New("broker refused")
	c := &Client{client: &fakePahoClient{err: errBroker}}

	err := c.Publish("topic", 1, false, "x")
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.ErrorIs(t, err, errBroker)

	err = c.Subscribe("topic", 1, func(string, []byte) {})
	assert.ErrorIs(t, err, ErrSubscribeFailed)
	assert.ErrorIs(t, err, errBroker)

	healthy := &Client{client: &fakePahoClient{}}
	assert.NoError(t, healthy.Publish("topic", 1, false, "x"))
	assert.NoError(t, healthy.Subscribe("topic", 1, func(string, []byte) {}))
}
