package dentists

import "time"

// Dentist is a practitioner appointments are booked against.
// Creation is out of band (seeded rows); the API is read-only.
type Dentist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}
