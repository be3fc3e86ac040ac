// Package forms validates and sanitizes user submissions before they
// reach the store. Validation never persists anything.
package forms

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/postline/postline/store"
)

// Errors carries per-field validation messages. A nil/empty map means the
// input is valid.
type Errors map[string]string

// HasErrors returns true if any field failed validation.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// PostInput is a submitted post form. Image is the file-store key of an
// already stored upload, empty when no image was attached. It is never
// bound from the request, the upload itself arrives as a multipart file.
type PostInput struct {
	Text    string `form:"text" json:"text"`
	GroupID string `form:"group" json:"group"`
	Image   string `form:"-" json:"image"`
}

// Validate checks the input and resolves the optional group reference
// against the store. On success the input is sanitized in place (text
// trimmed) and ready for persistence.
func (in *PostInput) Validate(s *store.Store) (Errors, error) {
	errs := Errors{}

	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		errs["text"] = "text is required"
	}

	if in.GroupID != "" {
		_, err := s.GetGroup(in.GroupID)
		if errors.Is(err, store.ErrNotFound) {
			errs["group"] = "group does not exist"
		} else if err != nil {
			return nil, err
		}
	}

	return errs, nil
}

// Group returns the validated group reference as a nullable id.
func (in *PostInput) Group() *string {
	if in.GroupID == "" {
		return nil
	}
	return &in.GroupID
}

// CommentInput is a submitted comment form.
type CommentInput struct {
	Text string `form:"text" json:"text"`
}

// Validate checks the comment text. On success the input is sanitized in
// place and ready for persistence.
func (in *CommentInput) Validate() Errors {
	errs := Errors{}

	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		errs["text"] = "text is required"
	}

	return errs
}
