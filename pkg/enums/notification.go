package enums

import "fmt"

// NotificationChannel names the side channel a notification is delivered on.
type NotificationChannel string

const (
	NotificationChannelSMS   NotificationChannel = "sms"
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelOrder NotificationChannel = "order"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelSMS,
	NotificationChannelEmail,
	NotificationChannelOrder,
}

// IsValid checks whether the given channel is known.
func (n NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationChannel converts raw strings into NotificationChannel.
func ParseNotificationChannel(value string) (NotificationChannel, error) {
	for _, candidate := range validNotificationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification channel %q", value)
}
