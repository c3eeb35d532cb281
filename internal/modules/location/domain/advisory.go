package domain

type AdvisoryKind string

const (
	AdvisoryAlert AdvisoryKind = "alert"
	AdvisoryToast AdvisoryKind = "toast"
)

const (
	ActionOpenSettings    = "Go to Settings"
	ActionDontUseLocation = "Don't Use Location"
)

// Advisory is a one-time user-facing notice. Actions, when present, are the
// choices offered; the first one is the affirmative choice.
type Advisory struct {
	Kind    AdvisoryKind
	Title   string
	Message string
	Actions []string
}

// Service notification constants. The notification id is fixed so repeated
// starts update the same notification.
const (
	ChannelID          = "locationChannel"
	ChannelName        = "Location Tracking Channel"
	ChannelDescription = "Tracks location of user"
	NotificationID     = 420
	NotificationText   = "Tracking location updates"
	NotificationIcon   = "ic_launcher"
)

type ChannelConfig struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	EnableVibration bool   `json:"enable_vibration"`
}

type NotificationConfig struct {
	ChannelID string `json:"channel_id"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Icon      string `json:"icon"`
}

func DefaultChannel() ChannelConfig {
	return ChannelConfig{ID: ChannelID, Name: ChannelName, Description: ChannelDescription}
}

func DefaultNotification(title string) NotificationConfig {
	return NotificationConfig{
		ChannelID: ChannelID,
		ID:        NotificationID,
		Title:     title,
		Text:      NotificationText,
		Icon:      NotificationIcon,
	}
}
