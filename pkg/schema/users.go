package schema

// Attribute names of the users dump
const (
	AttrID             = "Id"
	AttrReputation     = "Reputation"
	AttrCreationDate   = "CreationDate"
	AttrDisplayName    = "DisplayName"
	AttrLastAccessDate = "LastAccessDate"
	AttrWebsiteURL     = "WebsiteUrl"
	AttrLocation       = "Location"
	AttrAboutMe        = "AboutMe"
	AttrViews          = "Views"
	AttrUpVotes        = "UpVotes"
	AttrDownVotes      = "DownVotes"
	AttrAge            = "Age"
	AttrAccountID      = "AccountId"
)

// UserAttributes returns the static descriptors of a users dump. Text sizes are
// generous hand-picked bounds; dynamic sizing replaces them with scanned values.
func UserAttributes() []AttributeDescriptor {
	return []AttributeDescriptor{
		{Name: AttrID, Kind: KindInteger},
		{Name: AttrReputation, Kind: KindInteger},
		{Name: AttrCreationDate, Kind: KindDate},
		{Name: AttrDisplayName, Kind: KindText, MaxSize: 50},
		{Name: AttrLastAccessDate, Kind: KindDate},
		{Name: AttrWebsiteURL, Kind: KindText, MaxSize: 256},
		{Name: AttrLocation, Kind: KindText, MaxSize: 50},
		{Name: AttrAboutMe, Kind: KindMarkupText, MaxSize: 4000},
		{Name: AttrViews, Kind: KindInteger},
		{Name: AttrUpVotes, Kind: KindInteger},
		{Name: AttrDownVotes, Kind: KindInteger},
		{Name: AttrAge, Kind: KindInteger},
		{Name: AttrAccountID, Kind: KindInteger},
	}
}

// DefaultUserSchema returns a fresh registry for a users dump
func DefaultUserSchema() *Registry {
	return MustRegistry(UserAttributes()...)
}
