package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// ErrorResponse carries the authoritative current status on state conflicts
// so clients refresh instead of retrying a stale mutation.
type ErrorResponse struct {
	Error         string   `json:"error"`
	CurrentStatus string   `json:"current_status,omitempty"`
	Missing       []string `json:"missing,omitempty"`
	RequestID     string   `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type LeadAcceptResponse struct {
	Lead         any  `json:"lead"`
	ChargeTx     any  `json:"charge_tx,omitempty"`
	OverExtended bool `json:"over_extended"`
}

type EscrowResponse struct {
	Escrow     any `json:"escrow"`
	Milestones any `json:"milestones,omitempty"`
}
