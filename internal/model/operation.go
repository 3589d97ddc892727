package model

// OperationRecord is a journal line describing one state transition of an
// orchestrated operation. Amounts are decimal strings.
type OperationRecord struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	Token0      string `json:"token0,omitempty"`
	Token1      string `json:"token1,omitempty"`
	Amount0In   string `json:"amount0_in,omitempty"`
	Amount0Out  string `json:"amount0_out,omitempty"`
	Amount1In   string `json:"amount1_in,omitempty"`
	Amount1Out  string `json:"amount1_out,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	Error       string `json:"error,omitempty"`
	RecordedAt  string `json:"recorded_at"`
}
