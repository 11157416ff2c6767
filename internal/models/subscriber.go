package models

import "time"

// Subscriber represents a bot user that receives new article notifications.
type Subscriber struct {
	ID                int64      `json:"id" bson:"user_id"`
	DisplayName       string     `json:"display_name" bson:"username"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty" bson:"last_interaction_at"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
}
