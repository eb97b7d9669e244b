package publisher

// SettingsEvent is published by the admin side whenever the store settings row changes.
type SettingsEvent struct {
	Event     string `json:"event"`
	UpdatedBy string `json:"updated_by,omitempty"`
}
