package app

// NewSessionRequest is the input for starting a season.
type NewSessionRequest struct {
	PlayerName string `json:"player_name"`
}
