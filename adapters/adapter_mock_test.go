package adapters

import (
	"testing"

	"github.com/beeeon/gateway/adapters/mocks"
	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/dispatch"
	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/model"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

// TestDispatcherRoutesToMockAdapter exercises a gomock Adapter through
// the real dispatcher rather than a hand-rolled fake, to keep a
// generated-mock path exercised alongside it.
func TestDispatcherRoutesToMockAdapter(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockAdapter(ctrl)

	a.EXPECT().Prefix().Return(model.PrefixBluetooth).AnyTimes()
	a.EXPECT().Accept(gomock.Any()).Return(true, nil)
	a.EXPECT().Handle(gomock.Any(), gomock.Any()).Do(func(cmd *model.Command, ans *answer.Answer) {
		r := ans.AddResult()
		_ = r.SetStatus(answer.StatusSuccess)
	})

	d := dispatch.New(executor.Inline(), nil)
	require.NoError(t, d.RegisterHandler(a))

	q := answer.NewAnswerQueue()
	ans, err := q.NewAnswer()
	require.NoError(t, err)

	cmd := model.NewDeviceCommand(nil)
	d.Dispatch(&cmd, ans)

	require.Len(t, ans.Results(), 1)
}
