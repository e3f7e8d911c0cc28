package domain

// Visibility controls who can read a timeline entry.
type Visibility string

const (
	VisibilityPublic       Visibility = "public"
	VisibilityInternal     Visibility = "internal"
	VisibilityEnvelopeOnly Visibility = "envelope_only"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityInternal, VisibilityEnvelopeOnly:
		return true
	}
	return false
}

// ViewerKind separates customers from agents.
type ViewerKind string

const (
	ViewerCustomer ViewerKind = "customer"
	ViewerAgent    ViewerKind = "agent"
)

// Viewer describes who is reading a ticket timeline.
type Viewer struct {
	Kind              ViewerKind
	AgentID           string
	IsOwner           bool
	AssignedEnvelopes map[string]bool
	// ViewingEnvelopeID narrows envelope_only entries to a single envelope.
	ViewingEnvelopeID *string
}

// CanView is the single visibility predicate for timeline entries.
func (v Viewer) CanView(entry TimelineEntry) bool {
	switch entry.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityInternal:
		return v.Kind == ViewerAgent
	case VisibilityEnvelopeOnly:
		if v.Kind != ViewerAgent || entry.EnvelopeID == nil {
			return false
		}
		if v.ViewingEnvelopeID != nil && *v.ViewingEnvelopeID != *entry.EnvelopeID {
			return false
		}
		return v.IsOwner || v.AssignedEnvelopes[*entry.EnvelopeID]
	default:
		return false
	}
}
