package gammaapi

import "strings"

// EventID tolerates both the numeric and string encodings the Gamma API has
// used for event ids.
type EventID string

func (id *EventID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	*id = EventID(strings.Trim(s, `"`))
	return nil
}

func (id EventID) String() string {
	return string(id)
}

// Event is a Gamma API event. Tag metadata arrives under several field names
// depending on the endpoint, so all three variants are decoded.
type Event struct {
	ID        EventID  `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Question  string   `json:"question"`
	CreatedAt string   `json:"createdAt"` // RFC 3339
	Tags      []string `json:"tags"`
	TagSlugs  []string `json:"tagSlugs"`
	TagLabels []string `json:"tag_labels"`
	Volume    float64  `json:"volume"`
	Liquidity float64  `json:"liquidity"`
	Active    bool     `json:"active"`
	Closed    bool     `json:"closed"`
}

// Label returns the display title for an event, preferring title over
// question.
func (e *Event) Label() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Question
}

// AllTags returns every tag string attached to the event, across all tag
// field variants.
func (e *Event) AllTags() []string {
	tags := make([]string, 0, len(e.Tags)+len(e.TagSlugs)+len(e.TagLabels))
	for _, group := range [][]string{e.Tags, e.TagSlugs, e.TagLabels} {
		for _, t := range group {
			if t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// eventsEnvelope is the wrapped form of the events response.
type eventsEnvelope struct {
	Events []Event `json:"events"`
}
