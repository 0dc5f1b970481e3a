package domain

// Client is a roster entry. Phone and email are optional; email must be
// unique when present.
type Client struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}
