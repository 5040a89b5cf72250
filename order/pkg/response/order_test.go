package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "Order Placed", StageLabel(StagePlaced))
	assert.Equal(t, "Packed", StageLabel(StagePacked))
	assert.Equal(t, "Out for Delivery", StageLabel(StageOutForDelivery))
	assert.Equal(t, "Delivered", StageLabel(StageDelivered))
	assert.Equal(t, "Unknown", StageLabel(0))
	assert.Equal(t, "Unknown", StageLabel(5))
}

func TestOrderTerminal(t *testing.T) {
	assert.False(t, Order{}.Terminal())
	assert.True(t, Order{IsDelivered: true}.Terminal())
	assert.True(t, Order{IsCanceled: true}.Terminal())
}

func TestOrderStageKnown(t *testing.T) {
	assert.False(t, Order{}.StageKnown())
	assert.True(t, Order{DeliveryStage: StagePlaced}.StageKnown())
}
