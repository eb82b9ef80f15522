package domain

// ClientEvent is what the browser posts when a visitor clicks a link.
type ClientEvent struct {
	ProfileUsername string `json:"profileUsername"`
	LinkID          string `json:"linkId"`
	LinkTitle       string `json:"linkTitle"`
	LinkURL         string `json:"linkUrl"`
	UserAgent       string `json:"userAgent,omitempty"`
	Referrer        string `json:"referrer,omitempty"`
}

// RequestContext is what the server observed about the tracking request.
type RequestContext struct {
	UserAgent string
	Referrer  string
	Geo       Geo
}

type Geo struct {
	Country   string `json:"country"`
	Region    string `json:"region"`
	City      string `json:"city"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// ClickEvent is the envelope forwarded to the event sink. It is never stored locally.
type ClickEvent struct {
	Timestamp       string `json:"timestamp"`
	ProfileUsername string `json:"profileUsername"`
	ProfileUserID   string `json:"profileUserId"`
	LinkID          string `json:"linkId"`
	LinkTitle       string `json:"linkTitle"`
	LinkURL         string `json:"linkUrl"`
	UserAgent       string `json:"userAgent"`
	Referrer        string `json:"referrer"`
	Location        Geo    `json:"location"`
}

// Validate rejects events that cannot be attributed to a link on a page.
func (e ClientEvent) Validate() error {
	if e.ProfileUsername == "" {
		return invalid("profileUsername", "profileUsername is required")
	}
	if e.LinkID == "" {
		return invalid("linkId", "linkId is required")
	}
	return nil
}
