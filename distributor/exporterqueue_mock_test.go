package distributor

import (
	"testing"

	"github.com/beeeon/gateway/distributor/mocks"
	"github.com/beeeon/gateway/model"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

// TestExporterQueueShipsThroughMockExporter exercises ExporterQueue
// against a gomock Exporter rather than the hand-rolled fakeExporter,
// to keep a generated-mock path exercised alongside it.
func TestExporterQueueShipsThroughMockExporter(t *testing.T) {
	ctrl := gomock.NewController(t)
	exp := mocks.NewMockExporter(ctrl)

	data := sample(1)
	exp.EXPECT().Ship(data).Return(true, nil).Times(1)

	q := NewExporterQueue(exp, UnlimitedBatchSize, UnlimitedCapacity, UnlimitedThreshold)
	q.Enqueue(data)

	shipped := q.ExportBatch()
	require.Equal(t, 1, shipped)
	require.Equal(t, uint64(1), q.Sent())
}
