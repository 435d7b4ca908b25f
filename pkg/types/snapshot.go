package types

// Server -> Client
// RelayView:
//   room_id: string
//   user: User
//   settings: { send_pointer, show_pointers }
//   downstream, upstream: { channel, open, selection }
//   view_url: string   // page to open for the private view

type Settings struct {
	SendPointer  bool `json:"send_pointer"`
	ShowPointers bool `json:"show_pointers"`
}

type Channel struct {
	Channel   string `json:"channel"`
	Open      bool   `json:"open"`
	Selection string `json:"selection"`
}

type RelayView struct {
	RoomID     string   `json:"room_id"`
	User       User     `json:"user"`
	Settings   Settings `json:"settings"`
	Downstream Channel  `json:"downstream"`
	Upstream   Channel  `json:"upstream"`
	ViewURL    string   `json:"view_url"`
}
