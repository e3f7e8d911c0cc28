package domain

// TransferType is the reason class of an emergency ownership transfer.
type TransferType string

const (
	TransferTermination   TransferType = "termination"
	TransferExtendedLeave TransferType = "extended_leave"
)

// Valid reports whether t is one of the two permitted transfer reasons.
func (t TransferType) Valid() bool {
	return t == TransferTermination || t == TransferExtendedLeave
}
