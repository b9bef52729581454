package domain

// TransferPolicy holds the static limits applied to every transfer
type TransferPolicy struct {
	maxTransferAmount Money
}

// NewTransferPolicy creates a policy allowing single transfers up to maxTransferAmount (inclusive)
func NewTransferPolicy(maxTransferAmount Money) TransferPolicy {
	return TransferPolicy{maxTransferAmount: maxTransferAmount}
}

// MaxTransferAmount returns the configured threshold
func (p TransferPolicy) MaxTransferAmount() Money {
	return p.maxTransferAmount
}

// IsWithinThreshold reports whether amount <= MaxTransferAmount
func (p TransferPolicy) IsWithinThreshold(amount Money) bool {
	return !amount.IsGreaterThan(p.maxTransferAmount)
}

// CheckThreshold returns a *ThresholdExceededError if amount is above the threshold
func (p TransferPolicy) CheckThreshold(amount Money) error {
	if p.IsWithinThreshold(amount) {
		return nil
	}
	return &ThresholdExceededError{Threshold: p.maxTransferAmount, Actual: amount}
}

// TransferRequest asks to move Amount from SourceAccountID to TargetAccountID
type TransferRequest struct {
	SourceAccountID AccountID
	TargetAccountID AccountID
	Amount          Money
}

// NewTransferRequest builds a validated request
func NewTransferRequest(sourceAccountID, targetAccountID AccountID, amount Money) (TransferRequest, error) {
	req := TransferRequest{
		SourceAccountID: sourceAccountID,
		TargetAccountID: targetAccountID,
		Amount:          amount,
	}
	if err := req.Validate(); err != nil {
		return TransferRequest{}, err
	}
	return req, nil
}

// Validate checks that both identities are present and distinct and the amount is positive.
// A transfer to the same account would lock it twice.
func (r TransferRequest) Validate() error {
	if r.SourceAccountID.IsZero() {
		return ErrSourceAccountIDEmpty
	}
	if r.TargetAccountID.IsZero() {
		return ErrTargetAccountIDEmpty
	}
	if r.SourceAccountID == r.TargetAccountID {
		return ErrSameAccount
	}
	if !r.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}
