package domain

// User-specific fields on top of the shared record metadata.
const (
	FieldName         = "name"
	FieldAge          = "age"
	FieldContact      = "contact"
	FieldCity         = "city"
	FieldEmail        = "email"
	FieldPasswordHash = "password_hash"
)

// PublicUser is the safe projection of a user record returned by the auth
// endpoints. It never carries the password hash.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PublicUserFromDocument projects a user record to its public view.
func PublicUserFromDocument(doc Document) *PublicUser {
	return &PublicUser{
		ID:    doc.ID(),
		Name:  doc.String(FieldName),
		Email: doc.String(FieldEmail),
	}
}
