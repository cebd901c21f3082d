package domain

type PurchaseResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transaction_hash"`
	Message         string `json:"message,omitempty"`
}
