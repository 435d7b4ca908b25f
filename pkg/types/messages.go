package types

// Client -> Server
// POST /relay:
//   room_id: string
//   user: { key, name, color, user_id }   // user_id generated when empty
//   send_pointer, show_pointers: boolean  // optional, default true
//
// PATCH /relay/settings:
//   send_pointer, show_pointers: boolean  // omitted fields are left alone

type User struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	UserID string `json:"user_id,omitempty"`
}

type ConnectRequest struct {
	RoomID       string `json:"room_id"`
	User         User   `json:"user"`
	SendPointer  *bool  `json:"send_pointer,omitempty"`
	ShowPointers *bool  `json:"show_pointers,omitempty"`
}

type SettingsPatch struct {
	SendPointer  *bool `json:"send_pointer,omitempty"`
	ShowPointers *bool `json:"show_pointers,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
