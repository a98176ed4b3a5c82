package models

import (
	"regexp"
	"strings"
	"unicode/utf8"

	dErrors "loannote/pkg/domainerrors"
)

const (
	maxTitleLen    = 255
	maxAuthorLen   = 100
	maxBorrowerLen = 100
)

// emailPattern accepts a plain local-part@domain.tld shape; anything fancier
// (quoted local parts, IP domains) is rejected on purpose.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// LoanNotificationRequest is a client-side loan event submitted by the widget.
type LoanNotificationRequest struct {
	BookTitle     string `json:"book_title"`
	BookAuthor    string `json:"book_author"`
	BorrowerName  string `json:"borrower_name"`
	BorrowerEmail string `json:"borrower_email"`
}

// Validate checks the submission, short-circuiting on the first failure:
// required fields, then length bounds on the original text, then email
// syntax. Lengths are judged before Sanitize runs so a client cannot smuggle
// an overlong field past the bound by padding it with stripped characters.
func (r *LoanNotificationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"book_title", r.BookTitle},
		{"book_author", r.BookAuthor},
		{"borrower_name", r.BorrowerName},
		{"borrower_email", r.BorrowerEmail},
	} {
		if f.value == "" {
			return dErrors.New(dErrors.CodeValidation, "Missing required field: "+f.name)
		}
	}

	// Bounds count characters, not bytes: accented titles must not hit the
	// limit early.
	if utf8.RuneCountInString(r.BookTitle) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "book_title too long (max 255 characters)")
	}
	if utf8.RuneCountInString(r.BookAuthor) > maxAuthorLen {
		return dErrors.New(dErrors.CodeValidation, "book_author too long (max 100 characters)")
	}
	if utf8.RuneCountInString(r.BorrowerName) > maxBorrowerLen {
		return dErrors.New(dErrors.CodeValidation, "borrower_name too long (max 100 characters)")
	}

	if !emailPattern.MatchString(r.BorrowerEmail) {
		return dErrors.New(dErrors.CodeValidation, "Invalid borrower email format")
	}

	return nil
}

// Sanitize scrubs the free-text fields in place for safe embedding in the
// notification markup: angle brackets and quotes go, then surrounding
// whitespace. Call it only after Validate has passed.
func (r *LoanNotificationRequest) Sanitize() {
	r.BookTitle = sanitizeText(r.BookTitle)
	r.BookAuthor = sanitizeText(r.BookAuthor)
	r.BorrowerName = sanitizeText(r.BorrowerName)
}

func sanitizeText(s string) string {
	s = strings.Map(func(c rune) rune {
		switch c {
		case '<', '>', '"', '\'':
			return -1
		}
		return c
	}, s)
	return strings.TrimSpace(s)
}
