package domain

// GroupSpec is the configured target state of the distribution group:
// identity for creation plus the desired managed attributes.
type GroupSpec struct {
	Name       string
	Mail       string
	Scope      string // e.g. "Universal"
	Category   string // "Distribution" or "Security"
	OUPath     string // organizational unit DN the group lives under
	Attributes AttributeSet
}

// Group is the directory service's view of an existing group.
type Group struct {
	DN         MemberID
	Name       string
	Mail       string
	Attributes AttributeSet
}
