// Package event reads the denormalised event payload that a page bound to
// an event renders (core fields, sessions, speakers, registration stats).
//
// Events are owned by the registration side of the application; this
// package only reads the `event`, `event_session`, `event_speaker`, and
// `registration` tables.
package event

// Payload is the enrichment attached to a resolved page.
type Payload struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt string    `json:"starts_at,omitempty"`
	EndsAt   string    `json:"ends_at,omitempty"`
	Venue    string    `json:"venue,omitempty"`
	Sessions []Session `json:"sessions"`
	Speakers []Speaker `json:"speakers"`
	Stats    Stats     `json:"stats"`
}

// Session is one agenda slot.
type Session struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	StartsAt string `json:"starts_at,omitempty"`
	EndsAt   string `json:"ends_at,omitempty"`
	Room     string `json:"room,omitempty"`
}

// Speaker is one person on the event's speaker list.
type Speaker struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Stats are live registration counters.
type Stats struct {
	Registrations int `json:"registrations"`
	CheckedIn     int `json:"checked_in"`
}
