package domain

import "time"

// Feedback is a free-form message submitted by a user.
type Feedback struct {
	ID        string
	Content   string
	CreatedAt time.Time
}
