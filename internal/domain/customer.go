package domain

import "time"

// CustomerTier drives the customer-tier priority multiplier.
type CustomerTier string

const (
	CustomerTierStandard CustomerTier = "standard"
	CustomerTierPremium  CustomerTier = "premium"
	CustomerTierVIP      CustomerTier = "vip"
)

// Contact is the requester of a ticket.
type Contact struct {
	ID        string
	Name      string
	Email     string
	CompanyID *string
	Tier      CustomerTier
	CreatedAt time.Time
}

// Company groups contacts.
type Company struct {
	ID        string
	Name      string
	Tier      CustomerTier
	CreatedAt time.Time
}
