package model

// Device is one installation of the reading app. The ID is assigned once at
// registration and is stable for the installation's lifetime; it is the key
// a device's progress records live under.
type Device struct {
	ID        string `json:"id"`
	UserID    int32  `json:"user_id"`
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	CreatedTs int64  `json:"created_ts"`
	// LastSeenTs is bumped whenever the device pushes or pulls.
	LastSeenTs int64 `json:"last_seen_ts"`
}

type FindDevice struct {
	ID     *string `json:"id"`
	UserID *int32  `json:"user_id"`
}

type DeviceRegisterRequest struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}
