package dispatch

import (
	"errors"
	"testing"

	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/model"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	name     string
	accepts  bool
	acceptErr error
	handled  chan *model.Command
}

func newFakeHandler(name string, accepts bool) *fakeHandler {
	return &fakeHandler{name: name, accepts: accepts, handled: make(chan *model.Command, 4)}
}

func (f *fakeHandler) Accept(cmd *model.Command) (bool, error) {
	if f.acceptErr != nil {
		return false, f.acceptErr
	}
	return f.accepts, nil
}

func (f *fakeHandler) Handle(cmd *model.Command, ans *answer.Answer) {
	r := ans.AddResult()
	f.handled <- cmd
	_ = r.SetStatus(answer.StatusSuccess)
}

func (f *fakeHandler) SendingHandler() any { return f }

func TestDispatchRejectsDuplicateHandler(t *testing.T) {
	d := New(executor.Inline(), nil)
	h := newFakeHandler("h1", true)
	require.NoError(t, d.RegisterHandler(h))
	require.Error(t, d.RegisterHandler(h))
}

func TestDispatchRoutesToAcceptingHandlersOnly(t *testing.T) {
	d := New(executor.Inline(), nil)
	accepting := newFakeHandler("accepting", true)
	rejecting := newFakeHandler("rejecting", false)
	require.NoError(t, d.RegisterHandler(accepting))
	require.NoError(t, d.RegisterHandler(rejecting))

	q := answer.NewAnswerQueue()
	ans, err := q.NewAnswer()
	require.NoError(t, err)

	cmd := model.NewDeviceCommand(nil)
	d.Dispatch(&cmd, ans)

	require.Len(t, accepting.handled, 1)
	require.Len(t, rejecting.handled, 0)
	require.False(t, ans.IsPending())
}

func TestDispatchSkipsSendingHandler(t *testing.T) {
	d := New(executor.Inline(), nil)
	self := newFakeHandler("self", true)
	require.NoError(t, d.RegisterHandler(self))

	q := answer.NewAnswerQueue()
	ans, err := q.NewAnswer()
	require.NoError(t, err)

	cmd := model.NewDeviceCommand(self)
	d.Dispatch(&cmd, ans)

	require.Len(t, self.handled, 0)
	require.Equal(t, 0, ans.ResultsCount())
	require.False(t, ans.IsPending())
}

func TestDispatchZeroHandlersNotifiesImmediately(t *testing.T) {
	d := New(executor.Inline(), nil)
	q := answer.NewAnswerQueue()
	ans, err := q.NewAnswer()
	require.NoError(t, err)

	cmd := model.NewDeviceCommand(nil)
	d.Dispatch(&cmd, ans)

	require.False(t, ans.IsPending())
	require.True(t, ans.IsDirty())
}

func TestDispatchSkipsHandlerWhoseAcceptErrors(t *testing.T) {
	d := New(executor.Inline(), nil)
	broken := newFakeHandler("broken", true)
	broken.acceptErr = errors.New("boom")
	require.NoError(t, d.RegisterHandler(broken))

	q := answer.NewAnswerQueue()
	ans, err := q.NewAnswer()
	require.NoError(t, err)

	cmd := model.NewDeviceCommand(nil)
	d.Dispatch(&cmd, ans)

	require.Len(t, broken.handled, 0)
	require.False(t, ans.IsPending())
}
