package models

import "time"

type Branch struct {
	ID        string    `json:"id" bson:"_id"`
	OwnerID   string    `json:"ownerId" bson:"owner_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

type NewBranch struct {
	Name string `json:"name" validate:"required,max=120"`
}
