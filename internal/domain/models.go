// Package domain defines the persistence models for users, movies, ratings
// and threaded comments. These types are mapped with GORM and shared across
// the repository, service and HTTP layers.
package domain

import "time"

// User is a registered account. Username and email are unique at the storage
// layer; the password hash never leaves the server.
type User struct {
	ID             uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Username       string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	FullName       string    `json:"full_name"  gorm:"type:varchar(255);not null"`
	Email          string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	HashedPassword string    `json:"-"          gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Movie is a catalog entry created by a user. Only its owner may change or
// delete it.
//
// Fields:
//   - OwnerID: foreign key to the creating user (indexed).
//   - Owner: the owning user, populated when preloaded.
type Movie struct {
	ID          uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	OwnerID     uint      `json:"owner_id"    gorm:"not null;index:idx_movies_owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Movie.
func (Movie) TableName() string { return "movies" }

// Rating is a 0..5 star score left by a user on a movie, with an optional
// free-text comment. Ratings are removed together with their movie.
type Rating struct {
	ID        uint      `json:"id"       gorm:"primaryKey;autoIncrement"`
	Stars     int       `json:"stars"    gorm:"not null;check:stars >= 0 AND stars <= 5"`
	Comment   *string   `json:"comment"  gorm:"type:text"`
	MovieID   uint      `json:"movie_id" gorm:"not null;index:idx_ratings_movie"`
	UserID    uint      `json:"user_id"  gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Movie Movie `json:"-" gorm:"foreignKey:MovieID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "ratings" }

// Comment is a piece of discussion attached to a movie. A comment may answer
// another comment through ParentCommentID, forming an adjacency list. Reads
// resolve a single level of Children; there is no depth limit or cycle guard.
type Comment struct {
	ID              uint      `json:"id"                gorm:"primaryKey;autoIncrement"`
	Text            string    `json:"text"              gorm:"type:text;not null"`
	MovieID         uint      `json:"movie_id"          gorm:"not null;index:idx_comments_movie"`
	UserID          uint      `json:"user_id"           gorm:"not null;index"`
	ParentCommentID *uint     `json:"parent_comment_id" gorm:"index:idx_comments_parent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Children []Comment `json:"children" gorm:"foreignKey:ParentCommentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Movie Movie `json:"-" gorm:"foreignKey:MovieID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }
