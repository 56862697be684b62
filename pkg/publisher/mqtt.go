package publisher

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type MqttOptions struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	KeepAlive         time.Duration
	DisconnectGrace   time.Duration
	ConnectTimeout    time.Duration
	ConnectRetryDelay time.Duration
}

// MqttPublisher is the broker connection shared by all sections.
type MqttPublisher struct {
	client mqtt.Client
	opts   MqttOptions
	// one publish in flight at a time
	mu sync.Mutex
}

func init() {
	mqtt.ERROR = pahoLogger{log.ErrorLevel}
	mqtt.CRITICAL = pahoLogger{log.ErrorLevel}
	mqtt.WARN = pahoLogger{log.WarnLevel}
}

// DefaultClientID returns a client identifier unique to this process.
func DefaultClientID() string {
	return "teleinfod-" + uuid.NewString()[:8]
}

// NewMqttPublisher connects to the broker. The connection is retried in the
// background by paho after the first success.
func NewMqttPublisher(opts MqttOptions) (*MqttPublisher, error) {
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID()
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 60 * time.Second
	}
	if opts.DisconnectGrace == 0 {
		opts.DisconnectGrace = 10 * time.Second
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.ConnectRetryDelay == 0 {
		opts.ConnectRetryDelay = 10 * time.Second
	}

	mopt := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.ConnectTimeout).
		SetMaxReconnectInterval(opts.ConnectRetryDelay).
		SetDefaultPublishHandler(onUnexpectedMessage).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Infof("Connected to broker %s as %s", opts.Broker, opts.ClientID)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("Broker connection lost due to %v", err)
		})
	if opts.Username != "" {
		mopt.SetUsername(opts.Username)
		mopt.SetPassword(opts.Password)
	}

	p := &MqttPublisher{
		client: mqtt.NewClient(mopt),
		opts:   opts,
	}
	token := p.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("failed to connect to %s: timeout after %s", opts.Broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Broker, err)
	}
	return p, nil
}

// Publish sends payload with QoS 0 and waits for paho to hand it over.
func (p *MqttPublisher) Publish(topic string, payload []byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(p.opts.KeepAlive) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Disconnect lets in-flight publishes drain for the configured grace period.
func (p *MqttPublisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.Disconnect(uint(p.opts.DisconnectGrace.Milliseconds()))
	log.Infoln("Disconnected from broker")
}

// We never subscribe; anything arriving here is a broker side oddity.
func onUnexpectedMessage(_ mqtt.Client, msg mqtt.Message) {
	log.Debugf("Unexpected message arrival (topic : '%s')", msg.Topic())
}

type pahoLogger struct {
	level log.Level
}

func (l pahoLogger) Println(v ...interface{}) {
	log.StandardLogger().Logln(l.level, v...)
}

func (l pahoLogger) Printf(format string, v ...interface{}) {
	log.StandardLogger().Logf(l.level, format, v...)
}
