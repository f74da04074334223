package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/stan.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records calls; the embedded interface panics on anything else
type fakeConn struct {
	stan.Conn
	published map[string][]byte
	queues    []string
	options   stan.SubscriptionOptions
	fail      error
	closed    bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.published[subject] = data
	return nil
}

func (f *fakeConn) QueueSubscribe(subject, qgroup string, cb stan.MsgHandler, opts ...stan.SubscriptionOption) (stan.Subscription, error) {
	f.options = stan.DefaultSubscriptionOptions
	for _, opt := range opts {
		if err := opt(&f.options); err != nil {
			return nil, err
		}
	}
	f.queues = append(f.queues, subject+"/"+qgroup)
	return nil, f.fail
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestPublishWithoutConnection(t *testing.T) {
	var nilClient *NATSClient
	assert.ErrorIs(t, nilClient.Publish("makeup.submitted", map[string]int{"id": 1}), ErrNotConnected)

	nc := &NATSClient{}
	assert.ErrorIs(t, nc.Publish("makeup.submitted", map[string]int{"id": 1}), ErrNotConnected)

	_, err := nc.SubscribeQueue("makeup.submitted", "mailers", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.NoError(t, nc.Close())
}

func TestPublish(t *testing.T) {
	conn := &fakeConn{published: map[string][]byte{}}
	nc := newClient(conn, Config{})

	require.NoError(t, nc.Publish("registration.created", map[string]int64{"registration_id": 5}))
	assert.JSONEq(t, `{"registration_id":5}`, string(conn.published["registration.created"]))

	conn.fail = errors.New("timeout")
	assert.ErrorContains(t, nc.Publish("registration.created", 1), "registration.created")

	assert.Error(t, nc.Publish("bad", func() {}))
}

func TestSubscribeQueueOptions(t *testing.T) {
	conn := &fakeConn{}
	nc := newClient(conn, Config{AckWait: 45 * time.Second})

	_, err := nc.SubscribeQueue("makeup.transitioned", "mailers", func(*stan.Msg) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"makeup.transitioned/mailers"}, conn.queues)
	assert.Equal(t, "makeup.transitioned-mailers-durable", conn.options.DurableName)
	assert.True(t, conn.options.ManualAcks)
	assert.Equal(t, 45*time.Second, conn.options.AckWait)
	assert.Equal(t, 1, conn.options.MaxInflight)

	require.NoError(t, nc.Close())
	assert.True(t, conn.closed)
}
