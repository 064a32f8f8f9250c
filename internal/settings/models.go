package settings

import "gatherhub/collab-portal/collab-portal-backend/internal/notifications"

// NotificationPreferences is the settings view of a user's channel switches.
// Channels apply to every category; Categories override them per category.
// Effective is the channel set a new notification of each category would get.
type NotificationPreferences struct {
	UserID     string                                                    `json:"user_id"`
	Channels   map[notifications.Channel]bool                            `json:"channels"`
	Categories map[notifications.Category]map[notifications.Channel]bool `json:"categories"`
	Effective  map[notifications.Category]notifications.ChannelSet       `json:"effective,omitempty"`
}

// UpdateNotificationsRequest switches channels on or off. Omitted entries keep
// their current value.
type UpdateNotificationsRequest struct {
	Channels   map[notifications.Channel]bool                            `json:"channels"`
	Categories map[notifications.Category]map[notifications.Channel]bool `json:"categories"`
}

var categories = []notifications.Category{
	notifications.CategoryActionRequired,
	notifications.CategoryStatusUpdate,
	notifications.CategoryReminder,
	notifications.CategoryMilestone,
}
