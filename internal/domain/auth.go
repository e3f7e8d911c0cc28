package domain

// SubjectType names the kind of principal a token was issued to. Only agents
// authenticate against the API.
type SubjectType string

const SubjectTypeAgent SubjectType = "agent"
