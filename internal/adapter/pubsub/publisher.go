package pubsub

import (
	"fmt"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	DriverNone      = "none"
	DriverGoChannel = "gochannel"
	DriverAMQP      = "amqp"
)

type PublisherProvider struct {
	cfg    config.RelayConfig
	logger watermill.LoggerAdapter
}

func NewPublisherProvider(cfg *config.Config, logger watermill.LoggerAdapter) *PublisherProvider {
	return &PublisherProvider{cfg: cfg.Relay, logger: logger}
}

// Build returns the publisher for the configured driver, or nil when the relay is off.
func (pp *PublisherProvider) Build() (message.Publisher, error) {
	switch pp.cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverGoChannel:
		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, pp.logger), nil
	case DriverAMQP:
		pub, err := amqp.NewPublisher(TopicConfig(pp.cfg.AMQPURI, pp.cfg.Exchange), pp.logger)
		if err != nil {
			return nil, fmt.Errorf("relay: amqp publisher: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("relay: unknown driver %q", pp.cfg.Driver)
	}
}

// TopicConfig publishes to one durable topic exchange; the watermill topic
// becomes the AMQP routing key.
func TopicConfig(uri, exchange string) amqp.Config {
	return amqp.Config{
		Connection: amqp.ConnectionConfig{
			AmqpURI: uri,
		},
		Marshaler: amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return exchange },
			Type:         "topic",
			Durable:      true,
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}
}
