package domain

import "time"

// CalibrationReason explains why a resolution was queued for review.
type CalibrationReason string

const (
	CalibrationReasonTier3        CalibrationReason = "tier3"
	CalibrationReasonRandomSample CalibrationReason = "random_sample"
)

// FlaggedCalibrationReason builds the flagged_<type> reason.
func FlaggedCalibrationReason(flag CaseFlagType) CalibrationReason {
	return CalibrationReason("flagged_" + string(flag))
}

// ReviewStatus of a calibration item.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusReviewed ReviewStatus = "reviewed"
)

// CalibrationOutcome is the reviewer's verdict.
type CalibrationOutcome string

const (
	CalibrationOutcomeUpheld         CalibrationOutcome = "upheld"
	CalibrationOutcomeRevised        CalibrationOutcome = "revised"
	CalibrationOutcomeCoachingNeeded CalibrationOutcome = "coaching_needed"
)

// Valid reports whether o is a known outcome.
func (o CalibrationOutcome) Valid() bool {
	switch o {
	case CalibrationOutcomeUpheld, CalibrationOutcomeRevised, CalibrationOutcomeCoachingNeeded:
		return true
	}
	return false
}

// CalibrationItem is one resolution awaiting or having had calibration review.
type CalibrationItem struct {
	ID            string
	ResolutionID  string
	Reason        CalibrationReason
	ReviewStatus  ReviewStatus
	Outcome       *CalibrationOutcome
	ReviewerID    *string
	ReviewerNotes string
	CreatedAt     time.Time
	ReviewedAt    *time.Time
}
