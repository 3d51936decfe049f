package service

import (
	"time"

	"github.com/smallwares/backoffice/internal/domain"
)

// UserView is the public projection of a user record. It never carries the
// password hash or reset fields.
type UserView struct {
	ID        int64  `json:"id,string"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// AuthResult pairs a session token with the public projection of its user.
type AuthResult struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

func newUserView(user domain.User) UserView {
	return UserView{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}

// ProductView is the client-facing product shape.
type ProductView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newProductView(product domain.Product) ProductView {
	tags := product.Tags
	if tags == nil {
		tags = []string{}
	}
	return ProductView{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Tags:        tags,
		Price:       product.Price,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}
