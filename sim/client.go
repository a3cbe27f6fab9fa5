package sim

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/speakerver-sim/speakerver-sim/sim/engine"
	"github.com/speakerver-sim/speakerver-sim/sim/workload"
)

// Client generates one request every client_request_interval and records
// every response it gets back into the final messages.
type Client struct {
	Actor
	frontend *Frontend
	users    *workload.UserSampler
}

// NewClient creates a client drawing users from config.UserDistribution.
func NewClient(env *engine.Environment, name string, config *Config, stats *GlobalStats, logger *logrus.Logger) (*Client, error) {
	users, err := workload.NewUserSampler(config.UserDistribution, config.NumUsers)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", name, err)
	}
	return &Client{
		Actor: newActor(env, name, config, stats, logger),
		users: users,
	}, nil
}

// SetFrontend wires the frontend requests are sent to.
func (c *Client) SetFrontend(frontend *Frontend) {
	c.frontend = frontend
}

// Setup starts the send loop and the response loop.
func (c *Client) Setup() error {
	c.env.Process(c.sendFrontendRequests)
	c.env.Process(c.receiveFrontendResponses)
	return nil
}

// newRequest creates a request with a random 63-bit id for a sampled user.
func (c *Client) newRequest() *Message {
	return NewRequest(c.rng.Int63(), c.users.Sample(c.rng))
}

// sendFrontendRequests spawns one request per interval; requests in flight never delay the next one.
func (c *Client) sendFrontendRequests() error {
	c.env.Process(c.sendOneFrontendRequest)
	return c.env.Timeout(c.config.ClientRequestInterval, c.sendFrontendRequests)
}

func (c *Client) sendOneFrontendRequest() error {
	return c.sendToFrontend(c.newRequest())
}

func (c *Client) sendToFrontend(msg *Message) error {
	c.logf("send request %d for user %d", msg.ID, msg.UserID)
	msg.Stamp(StageClientSend, c.env.Now())
	return c.networkDelay(c.config.ClientFrontendLatency, func() error {
		c.frontend.Mailbox().Put(msg)
		return nil
	})
}

func (c *Client) receiveFrontendResponses() error {
	c.mailbox.Get(func(msg *Message) error {
		c.logf("receive response %d", msg.ID)
		msg.Stamp(StageClientReturn, c.env.Now())
		c.stats.RecordFinal(msg)
		return c.receiveFrontendResponses()
	})
	return nil
}
