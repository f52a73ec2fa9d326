package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDeviceRequestValid(t *testing.T) {
	req := &RegisterDeviceRequest{Token: "  abc ", Platform: "IOS"}
	require.True(t, req.Valid())
	assert.Equal(t, "abc", req.Token)
	assert.Equal(t, "ios", req.Platform)

	req = &RegisterDeviceRequest{Token: "abc"}
	require.True(t, req.Valid())
	assert.Equal(t, "android", req.Platform)

	assert.False(t, (&RegisterDeviceRequest{Token: " ", Platform: "web"}).Valid())
	assert.False(t, (&RegisterDeviceRequest{Token: "abc", Platform: "pager"}).Valid())
}

func TestBuildMessagePerPlatform(t *testing.T) {
	n := &Notification{Title: "New badge", Body: "You earned Wisdom Keeper", Data: map[string]string{"badge": "Wisdom Keeper"}}

	android := buildMessage(DeviceToken{Token: "a", Platform: "android"}, n)
	require.NotNil(t, android.Android)
	assert.Equal(t, "high", android.Android.Priority)
	assert.Equal(t, "a", android.Token)
	assert.Equal(t, n.Data, android.Data)

	ios := buildMessage(DeviceToken{Token: "i", Platform: "ios"}, n)
	require.NotNil(t, ios.APNS)
	assert.Nil(t, ios.Android)

	web := buildMessage(DeviceToken{Token: "w", Platform: "web"}, n)
	require.NotNil(t, web.Webpush)
	assert.Equal(t, "New badge", web.Webpush.Notification.Title)
}
