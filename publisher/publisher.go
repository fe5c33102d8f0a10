package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/orinocoz/energymeter/summary"
)

const publishTimeout = 5 * time.Second

type Config struct {
	Host     string
	Port     int16
	Username string
	Password string
	ClientID string
	Topic    string
}

// client is the part of the paho client the publisher uses.
type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends the price summary to an MQTT broker as a retained
// message, so home automation picks up the latest values on subscribe.
type Publisher struct {
	client client
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg Config) *Publisher {
	logger := slog.Default().With("module", "publisher")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected", slog.String("host", cfg.Host))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	installMqttLoggers(slog.Default().With("module", "mqtt"))

	return newPublisher(mqtt.NewClient(opts), cfg.Topic, logger)
}

func newPublisher(c client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{client: c, topic: topic, logger: logger, now: time.Now}
}

// Connect starts connecting in the background. With connect retry enabled
// the client keeps trying until the broker is reachable.
func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	token := p.client.Connect()
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.logger.Info("disconnecting MQTT client")
	p.client.Disconnect(250)
}

// Publish sends the summary to the configured topic.
func (p *Publisher) Publish(s summary.Summary) error {
	payload, err := json.Marshal(NewPayload(s, p.now()))
	if err != nil {
		return fmt.Errorf("error when encoding summary: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout when publishing to %s", p.topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("error when publishing to %s: %w", p.topic, token.Error())
	}

	p.logger.Debug("published summary", slog.String("topic", p.topic), slog.Int("bytes", len(payload)))
	return nil
}
