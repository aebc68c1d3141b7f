package model

// Notification is the durable form of an operator notification. Delivery
// beyond the table (mail, push) is a separate concern.
type Notification struct {
	ID          string                 `json:"id" db:"id"`
	RecipientID string                 `json:"recipient_id" db:"recipient_id"`
	Title       string                 `json:"title" db:"title"`
	Message     string                 `json:"message" db:"message"`
	Payload     map[string]interface{} `json:"payload" db:"-"`
	Ctime       int64                  `json:"ctime" db:"ctime"`
}
