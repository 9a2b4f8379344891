package event

// Source is the origin tag of an event. The set is open: deployments may use
// values beyond the well-known constants.
type Source string

// Well-known sources.
const (
	SourceGmail    Source = "gmail"
	SourceOutlook  Source = "outlook"
	SourceCalendar Source = "gcal"
	SourceSlack    Source = "slack"
	SourceTeams    Source = "teams"
	SourceGitHub   Source = "github"
	SourceNotion   Source = "notion"
	SourceDrive    Source = "drive"
)

// IsKnown reports whether s is one of the well-known sources.
func (s Source) IsKnown() bool {
	switch s {
	case SourceGmail, SourceOutlook, SourceCalendar, SourceSlack,
		SourceTeams, SourceGitHub, SourceNotion, SourceDrive:
		return true
	}
	return false
}
