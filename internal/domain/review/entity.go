package review

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrEmptyComment   = errors.New("comment cannot be empty")
	ErrCommentTooLong = errors.New("comment must be 1000 characters or less")
	ErrNotEligible    = errors.New("reviews require a completed order containing the book")
)

const maxCommentLength = 1000

type Rating int

func NewRating(value int) (Rating, error) {
	if value < 1 || value > 5 {
		return 0, ErrInvalidRating
	}
	return Rating(value), nil
}

func (r Rating) Value() int { return int(r) }

type Comment struct {
	value string
}

func NewComment(value string) (Comment, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Comment{}, ErrEmptyComment
	}
	if utf8.RuneCountInString(trimmed) > maxCommentLength {
		return Comment{}, ErrCommentTooLong
	}
	return Comment{value: trimmed}, nil
}

func (c Comment) Value() string { return c.value }

// EligibilityChecker answers whether the owner has a completed order that
// contains the book. Implemented by the order command side.
type EligibilityChecker interface {
	CanReview(ownerID, bookID uuid.UUID) error
}

type Review struct {
	id      uuid.UUID
	ownerID uuid.UUID
	bookID  uuid.UUID
	rating  Rating
	comment Comment
}

func NewReview(checker EligibilityChecker, ownerID, bookID uuid.UUID, rating Rating, comment Comment) (*Review, error) {
	if err := checker.CanReview(ownerID, bookID); err != nil {
		return nil, err
	}

	return &Review{
		id:      uuid.New(),
		ownerID: ownerID,
		bookID:  bookID,
		rating:  rating,
		comment: comment,
	}, nil
}

func ReconstructReview(id, ownerID, bookID uuid.UUID, rating Rating, comment Comment) *Review {
	return &Review{
		id:      id,
		ownerID: ownerID,
		bookID:  bookID,
		rating:  rating,
		comment: comment,
	}
}

func (r *Review) ID() uuid.UUID      { return r.id }
func (r *Review) OwnerID() uuid.UUID { return r.ownerID }
func (r *Review) BookID() uuid.UUID  { return r.bookID }
func (r *Review) Rating() Rating     { return r.rating }
func (r *Review) Comment() Comment   { return r.comment }
