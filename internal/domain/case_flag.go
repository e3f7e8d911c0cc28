package domain

import "time"

// CaseFlagType marks special handling on a ticket.
type CaseFlagType string

const (
	CaseFlagPhysicalDamage CaseFlagType = "physical_damage"
	CaseFlagSocialMedia    CaseFlagType = "social_media"
	CaseFlagVIP            CaseFlagType = "vip"
	CaseFlagLegal          CaseFlagType = "legal"
	CaseFlagRepeatContact  CaseFlagType = "repeat_contact"
)

// Valid reports whether t is a known flag type.
func (t CaseFlagType) Valid() bool {
	switch t {
	case CaseFlagPhysicalDamage, CaseFlagSocialMedia, CaseFlagVIP, CaseFlagLegal, CaseFlagRepeatContact:
		return true
	}
	return false
}

// CaseFlag is active until cleared.
type CaseFlag struct {
	ID        string
	TicketID  string
	Type      CaseFlagType
	Reason    string
	AddedBy   string
	CreatedAt time.Time
	ClearedAt *time.Time
	ClearedBy *string
}
