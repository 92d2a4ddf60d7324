package model

// Venue is the entity being classified.
type Venue struct {
	ID      string  `json:"venue_id"`
	Name    string  `json:"venue_name"`
	Type    string  `json:"venue_type,omitempty"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// Photo is one cached photo reference for a venue. The URL is an opaque
// locator; this system never fetches or decodes image bytes itself.
type Photo struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
}

// Review is a single review excerpt used as text evidence.
type Review struct {
	Author string  `json:"author,omitempty"`
	Rating float64 `json:"rating,omitempty"`
	Text   string  `json:"text"`
}

// InstagramData holds the cached Instagram signals for a venue.
type InstagramData struct {
	Username string   `json:"username,omitempty"`
	Bio      string   `json:"bio,omitempty"`
	Posts    []IGPost `json:"posts,omitempty"`
}

// IGPost is one cached Instagram post.
type IGPost struct {
	Caption string `json:"caption"`
}
