// Package service provides the business logic for Versebook: a single
// generic soft-delete lifecycle instantiated per resource type, plus the
// auth flows.
package service

import (
	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository"
	"github.com/versebook/versebook/internal/validate"
)

// Definition configures the lifecycle service for one resource type:
// where its records live, which field is unique among active records,
// which field is searched and sorted, and the validation rules.
type Definition struct {
	// Name is the resource name used in messages ("book-user", "link", "poem").
	Name string

	// Collection is the backing store collection.
	Collection repository.Collection

	// Rules are the field validation rules (first violation wins).
	Rules []validate.Rule
}

// UserDefinition describes the book-user resource.
// Email is unique among active users; name is the designated text field.
func UserDefinition() Definition {
	return Definition{
		Name: "book-user",
		Collection: repository.Collection{
			Name:        "book_users",
			UniqueField: domain.FieldEmail,
			SearchField: domain.FieldName,
		},
		Rules: []validate.Rule{
			{Field: "name", Kind: validate.KindName, Required: true},
			{Field: "age", Kind: validate.KindAge, Required: true},
			{Field: "contact", Kind: validate.KindContact, Required: true},
			{Field: "city", Kind: validate.KindText, Required: true},
			{Field: "email", Kind: validate.KindEmail, Required: true},
		},
	}
}

// LinkDefinition describes the link resource.
// Title is unique among active links and is the designated text field.
func LinkDefinition() Definition {
	return Definition{
		Name: "link",
		Collection: repository.Collection{
			Name:        "links",
			UniqueField: "title",
			SearchField: "title",
		},
		Rules: []validate.Rule{
			{Field: "title", Kind: validate.KindText, Required: true},
			{Field: "description", Kind: validate.KindText},
			{Field: "url", Kind: validate.KindURL, Required: true},
		},
	}
}

// PoemDefinition describes the poem resource.
// Title is unique among active poems and is the designated text field.
func PoemDefinition() Definition {
	return Definition{
		Name: "poem",
		Collection: repository.Collection{
			Name:        "poems",
			UniqueField: "title",
			SearchField: "title",
		},
		Rules: []validate.Rule{
			{Field: "title", Kind: validate.KindText, Required: true},
			{Field: "image", Kind: validate.KindText, Required: true},
			{Field: "description", Kind: validate.KindText, Required: true},
			{Field: "category", Kind: validate.KindText, Required: true},
			{Field: "url", Kind: validate.KindURL, Required: true},
		},
	}
}
