package mqtt

import (
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	// defaultQueueSize bounds the inbound message queue. Messages
	// arriving while the queue is full are dropped with a warning; the
	// shadow protocol tolerates this because deltas are re-issued for
	// as long as desired and reported state differ.
	defaultQueueSize = 64

	// disconnectQuiesce is how long Disconnect waits for in-flight
	// work to finish.
	disconnectQuiesce = 250 * time.Millisecond
)

// Handler consumes one inbound message. Handlers run synchronously on
// the goroutine that called Subscribe, Publish, or ProcessIncoming,
// never on the network goroutine. A Handler has no access to the
// client, so it cannot re-enter the transport.
type Handler func(topic string, payload []byte)

// Config describes the broker connection.
type Config struct {
	// BrokerURL is the endpoint in paho form, e.g.
	// ssl://host:8883, tcp://host:1883, wss://host:443.
	BrokerURL string

	// ClientID identifies this MQTT session; conventionally the thing
	// name.
	ClientID string

	// Credentials supplies TLS material for ssl:// and wss:// brokers.
	Credentials *Credentials

	// ConnectTimeout bounds session establishment. Zero means
	// unbounded.
	ConnectTimeout time.Duration

	// SendTimeout bounds each subscribe, unsubscribe, and publish.
	// Zero means unbounded.
	SendTimeout time.Duration
}

type message struct {
	topic   string
	payload []byte
}

// Client is a synchronous, single-session MQTT client.
//
// Inbound publishes are enqueued by the network goroutine and
// delivered to the Handler only when the owning goroutine drains the
// queue: after every subscribe and publish returns, and during
// ProcessIncoming. Subscribe and Publish therefore process pending
// inbound messages before returning, and the handler is never run
// re-entrantly.
type Client struct {
	log         *zap.Logger
	paho        paho.Client
	handler     Handler
	queue       chan message
	sendTimeout time.Duration
}

// needsTLS reports whether the URL scheme requires credentials.
func needsTLS(brokerURL string) bool {
	return strings.HasPrefix(brokerURL, "ssl://") ||
		strings.HasPrefix(brokerURL, "tls://") ||
		strings.HasPrefix(brokerURL, "wss://")
}

// Connect establishes the broker session and returns a connected
// client. handler receives every inbound message during queue drains.
func Connect(cfg Config, handler Handler, log *zap.Logger) (*Client, error) {
	if cfg.BrokerURL == "" {
		return nil, newError(KindInvalidParameter, "connect", "broker URL is required", nil)
	}
	if cfg.ClientID == "" {
		return nil, newError(KindInvalidParameter, "connect", "client ID is required", nil)
	}
	if handler == nil {
		return nil, newError(KindInvalidParameter, "connect", "handler is required", nil)
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		log:         log,
		handler:     handler,
		queue:       make(chan message, defaultQueueSize),
		sendTimeout: cfg.SendTimeout,
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetOrderMatters(true)

	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	if needsTLS(cfg.BrokerURL) {
		if cfg.Credentials == nil {
			return nil, newError(KindInvalidParameter, "connect", "secured scheme requires credentials", nil)
		}
		tlsConfig, err := cfg.Credentials.TLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	// Messages for topics without a per-subscription callback still
	// land in the queue.
	opts.SetDefaultPublishHandler(func(_ paho.Client, m paho.Message) {
		c.enqueue(m)
	})

	c.paho = paho.NewClient(opts)

	log.Info("Connecting to broker",
		zap.String("broker", cfg.BrokerURL),
		zap.String("client_id", cfg.ClientID),
	)

	token := c.paho.Connect()
	if err := c.wait(token, cfg.ConnectTimeout); err != nil {
		return nil, classifyConnectError("connect", err)
	}

	log.Info("Broker session established")
	return c, nil
}

// wait blocks on a paho token, honoring the timeout. Zero means
// unbounded.
func (c *Client) wait(token paho.Token, timeout time.Duration) error {
	if timeout <= 0 {
		token.Wait()
		return token.Error()
	}
	if !token.WaitTimeout(timeout) {
		return newError(KindTimeout, "wait", "operation timed out", nil)
	}
	return token.Error()
}

// enqueue hands a message from the network goroutine to the queue.
func (c *Client) enqueue(m paho.Message) {
	select {
	case c.queue <- message{topic: m.Topic(), payload: m.Payload()}:
	default:
		c.log.Warn("Inbound queue full, dropping message",
			zap.String("topic", m.Topic()),
			zap.Int("length", len(m.Payload())),
		)
	}
}

// drain delivers every queued message to the handler and returns.
func (c *Client) drain() {
	for {
		select {
		case m := <-c.queue:
			c.handler(m.topic, m.payload)
		default:
			return
		}
	}
}

// Subscribe subscribes to topic at QoS 1, then processes pending
// inbound messages before returning.
func (c *Client) Subscribe(topic string) error {
	token := c.paho.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		c.enqueue(m)
	})
	err := c.wait(token, c.sendTimeout)
	c.drain()
	if err != nil {
		return newError(KindTransport, "subscribe", topic, err)
	}
	c.log.Debug("Subscribed", zap.String("topic", topic))
	return nil
}

// Unsubscribe removes the subscription for topic, then processes
// pending inbound messages before returning.
func (c *Client) Unsubscribe(topic string) error {
	token := c.paho.Unsubscribe(topic)
	err := c.wait(token, c.sendTimeout)
	c.drain()
	if err != nil {
		return newError(KindTransport, "unsubscribe", topic, err)
	}
	c.log.Debug("Unsubscribed", zap.String("topic", topic))
	return nil
}

// Publish sends payload to topic at QoS 1, then processes pending
// inbound messages before returning. A nil or empty payload publishes
// an empty message.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.paho.Publish(topic, 1, false, payload)
	err := c.wait(token, c.sendTimeout)
	c.drain()
	if err != nil {
		return newError(KindTransport, "publish", topic, err)
	}
	c.log.Debug("Published",
		zap.String("topic", topic),
		zap.Int("length", len(payload)),
	)
	return nil
}

// ProcessIncoming delivers inbound messages to the handler until done
// returns true or the window elapses. A zero window means unbounded; a
// nil done never stops early.
func (c *Client) ProcessIncoming(window time.Duration, done func() bool) {
	if done == nil {
		done = func() bool { return false }
	}

	var deadline <-chan time.Time
	if window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if done() {
			return
		}
		select {
		case m := <-c.queue:
			c.handler(m.topic, m.payload)
		case <-deadline:
			return
		}
	}
}

// Disconnect drains any remaining inbound messages and closes the
// session.
func (c *Client) Disconnect() error {
	c.drain()
	c.paho.Disconnect(uint(disconnectQuiesce.Milliseconds()))
	c.log.Info("Broker session closed")
	return nil
}
