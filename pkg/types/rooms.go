package types

// Room Service wire shapes, shared by the reference server and the client.

type Participant struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Room is the snapshot returned by GET /rooms/{roomId}.
type Room struct {
	ID            string        `json:"id"`
	Name          string        `json:"name,omitempty"`
	Participants  []Participant `json:"participants"`
	DrawCompleted bool          `json:"draw_completed"`
	WinnerID      string        `json:"winner_id,omitempty"`
}

// DrawResponse is returned by POST /rooms/{roomId}/draw.
type DrawResponse struct {
	Winner Participant `json:"winner"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type AddParticipantRequest struct {
	Label string `json:"label"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
