package connector

import (
	"context"
	"testing"
	"time"

	"github.com/beeeon/gateway/connector/mocks"
	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/model"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

// TestConnectorSendUsesMockTransport exercises RunSend against a
// gomock Transport rather than the hand-rolled fakeTransport, to keep
// a generated-mock path exercised alongside it.
func TestConnectorSendUsesMockTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	sent := make(chan model.GWMessage, 1)
	tr.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg model.GWMessage) error {
			sent <- msg
			return nil
		}).AnyTimes()

	c := New(tr, executor.Inline(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go c.RunSend(ctx)
	defer func() {
		c.Stop()
		cancel()
	}()

	c.Send(model.GWMessage{Kind: model.MessageSensorDataExport})

	select {
	case msg := <-sent:
		require.Equal(t, model.MessageSensorDataExport, msg.Kind)
	case <-time.After(time.Second):
		t.Fatal("transport never received the send")
	}
}
