package distributor

import (
	"sync"
	"testing"
	"time"

	"github.com/beeeon/gateway/model"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu   sync.Mutex
	seen []model.SensorData
}

func (l *recordingListener) OnExportData(d model.SensorData) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, d)
}

func (l *recordingListener) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func TestDistributorExportDataWakesWorker(t *testing.T) {
	d := New(nil, WithIdleTimeout(50*time.Millisecond), WithDeadTimeout(0))
	exp := &fakeExporter{}
	d.RegisterExporter(exp)

	go d.Run()
	defer d.Stop()

	d.ExportData(sample(1))

	require.Eventually(t, func() bool {
		exp.mu.Lock()
		defer exp.mu.Unlock()
		return len(exp.shipped) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDistributorStopReturnsAfterRun(t *testing.T) {
	d := New(nil, WithIdleTimeout(5*time.Millisecond))
	go d.Run()
	d.Stop()
}

func TestDistributorNotifiesListenersOfEveryExport(t *testing.T) {
	d := New(nil, WithIdleTimeout(50*time.Millisecond))
	l := &recordingListener{}
	d.RegisterListener(l)

	d.ExportData(sample(7))
	d.ExportData(sample(8))

	require.Equal(t, 2, l.Count())
}
