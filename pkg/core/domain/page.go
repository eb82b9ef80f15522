package domain

// PublicPage is what a visitor sees at /u/{slug}.
type PublicPage struct {
	Slug        string `json:"slug"`
	PrincipalID string `json:"principal_id"`
	DisplaySlug string `json:"display_slug"`
	Links       []Link `json:"links"`
}

// LinkChangeKind names the mutation that produced a LinkChange.
type LinkChangeKind string

const (
	LinkCreated    LinkChangeKind = "created"
	LinkUpdated    LinkChangeKind = "updated"
	LinkDeleted    LinkChangeKind = "deleted"
	LinksReordered LinkChangeKind = "reordered"
)

// LinkChange is published after every successful write to a principal's links.
type LinkChange struct {
	PrincipalID string         `json:"principal_id"`
	Kind        LinkChangeKind `json:"kind"`
	LinkID      string         `json:"link_id,omitempty"`
	At          int64          `json:"at"`
}
