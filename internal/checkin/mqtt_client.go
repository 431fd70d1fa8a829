package checkin

import (
	"errors"
	"fmt"
	"sync"

	pkgmqtt "device-finance-backoffice/pkg/mqtt"

	"go.uber.org/zap"
)

// MQTTIngestionConfig describes the check-in subscription.
type MQTTIngestionConfig struct {
	CheckInTopic string
	QoS          byte
}

// MQTTIngestionClient wires MQTT check-ins into the processor.
type MQTTIngestionClient struct {
	cfg       *MQTTIngestionConfig
	client    *pkgmqtt.Client
	processor *Processor
	logger    *zap.Logger

	mu            sync.Mutex
	started       bool
	subscriptions []string
}

func NewMQTTIngestionClient(cfg *MQTTIngestionConfig, client *pkgmqtt.Client, processor *Processor, logger *zap.Logger) (*MQTTIngestionClient, error) {
	if cfg == nil || cfg.CheckInTopic == "" {
		return nil, errors.New("mqtt check-in topic is not configured")
	}
	if client == nil {
		return nil, errors.New("mqtt client is required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}

	return &MQTTIngestionClient{
		cfg:       cfg,
		client:    client,
		processor: processor,
		logger:    logger,
	}, nil
}

// Start connects to the broker, starts the workers and subscribes to check-ins.
func (c *MQTTIngestionClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	c.processor.Start()
	if err := c.client.Subscribe(c.cfg.CheckInTopic, c.cfg.QoS, c.handleCheckIn); err != nil {
		c.processor.Stop()
		c.client.Disconnect()
		return fmt.Errorf("subscribe failed for topic %s: %w", c.cfg.CheckInTopic, err)
	}
	c.subscriptions = append(c.subscriptions, c.cfg.CheckInTopic)
	c.logger.Info("Listening for device check-ins", zap.String("topic", c.cfg.CheckInTopic))

	c.started = true
	return nil
}

// Stop unsubscribes, drains the workers and disconnects from the broker.
func (c *MQTTIngestionClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if len(c.subscriptions) > 0 {
		if err := c.client.Unsubscribe(c.subscriptions...); err != nil {
			c.logger.Warn("Failed to unsubscribe from MQTT topics", zap.Error(err))
		}
	}

	c.processor.Stop()
	c.client.Disconnect()
	c.started = false
	c.subscriptions = nil
}

func (c *MQTTIngestionClient) handleCheckIn(topic string, payload []byte) {
	msg, err := ParseCheckIn(topic, payload, c.processor.clock.Now())
	if err != nil {
		c.logger.Warn("Invalid check-in payload", zap.String("topic", topic), zap.Error(err))
		return
	}

	c.processor.Submit(topic, msg)
}
