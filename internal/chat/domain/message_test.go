package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// sent < delivered < read,其他值排在外面
func TestDeliveryStatusRank(t *testing.T) {
	assert.Less(t, StatusSent.Rank(), StatusDelivered.Rank())
	assert.Less(t, StatusDelivered.Rank(), StatusRead.Rank())
	assert.Equal(t, 0, DeliveryStatus("seen").Rank())
}

func TestDeliveryStatusValid(t *testing.T) {
	assert.True(t, StatusSent.Valid())
	assert.True(t, StatusDelivered.Valid())
	assert.True(t, StatusRead.Valid())
	assert.False(t, DeliveryStatus("").Valid())
	assert.False(t, DeliveryStatus("seen").Valid())
}

func TestUserStatusValid(t *testing.T) {
	assert.True(t, UserStatusOnline.Valid())
	assert.True(t, UserStatusAway.Valid())
	assert.True(t, UserStatusBusy.Valid())
	assert.True(t, UserStatusOffline.Valid())
	assert.False(t, UserStatus("sleeping").Valid())
}
