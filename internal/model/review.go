package model

// Review is a user review of a movie. MovieID is a source id at this
// boundary.
type Review struct {
	ID        string `json:"id"`
	MovieID   string `json:"movieId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment" validate:"required"`
	CreatedAt string `json:"createdAt"`
}
