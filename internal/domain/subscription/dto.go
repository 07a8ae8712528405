package subscription

// PrepareRequest asks for the unsigned setup instructions (controller
// initialization if missing, then the spending approval).
type PrepareRequest struct {
	BundleID          string `json:"bundleId" binding:"required"`
	NumberOfIntervals int    `json:"numberOfIntervals" binding:"required,min=1"`
}

// PreparedAccount is one entry of an instruction's ordered account list.
type PreparedAccount struct {
	Address    string `json:"address"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// PreparedInstruction is an unsigned instruction for the wallet to sign, with
// copy the frontend can show.
type PreparedInstruction struct {
	Name        string            `json:"name"`
	Description string            `json:"desc"`
	ProgramID   string            `json:"programId"`
	Accounts    []PreparedAccount `json:"accounts"`
	Data        string            `json:"data"` // base64
}

// PrepareResponse carries the setup instructions in signing order.
type PrepareResponse struct {
	Transactions []PreparedInstruction `json:"transactions"`
}

// InitiateRequest creates (or re-activates) the intended subscription.
type InitiateRequest struct {
	BundleID string `json:"bundleId" binding:"required"`
}

// SignableTransaction is a partially signed transaction awaiting the user's
// co-signature.
type SignableTransaction struct {
	Name        string `json:"name"`
	Description string `json:"desc"`
	Transaction string `json:"transaction"` // base64
}

// InitiateResponse returns the ledger record plus the add-bundle transaction.
type InitiateResponse struct {
	Subscription *UserSubscription     `json:"subscription"`
	Transactions []SignableTransaction `json:"transactions"`
}

// ClaimRequest redeems one package of an active subscription.
type ClaimRequest struct {
	PackageID          string              `json:"package" binding:"required"`
	ProvidedFormFields []ProvidedFormField `json:"providedFormFields"`
}

// TriggerResponse reports a pull-payment attempt.
type TriggerResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
}

// DueRunResult is one subscription's outcome in a due-billing sweep.
type DueRunResult struct {
	SubscriptionID string `json:"subscriptionId"`
	Success        bool   `json:"success"`
	TxHash         string `json:"txHash,omitempty"`
	Error          string `json:"error,omitempty"`
}
