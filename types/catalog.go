package types

import "time"

// BirdCategory groups species in the catalog (e.g. raptors, waterfowl).
type BirdCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BirdSpecies is a cached bird catalog entry.
type BirdSpecies struct {
	ID             string    `json:"id"`
	CommonName     string    `json:"commonName"`
	ScientificName string    `json:"scientificName"`
	CategoryID     string    `json:"categoryId"`
	Description    string    `json:"description,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
	CachedAt       time.Time `json:"cachedAt"`
}

// MediaRecord tracks a locally captured photo or audio clip and its upload state.
type MediaRecord struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	SightingID string    `json:"sightingId,omitempty"`
	Kind       string    `json:"kind"` // photo or audio
	LocalPath  string    `json:"localPath"`
	StorageKey string    `json:"storageKey,omitempty"`
	Uploaded   bool      `json:"uploaded"`
	CreatedAt  time.Time `json:"createdAt"`
}
