package library

import (
	"regexp"
	"strings"

	"github.com/vbonduro/librarydesk/internal/domain"
)

// FieldError names the invalid field and the label key describing the
// problem, so the shells can print it in the operator's language.
type FieldError struct {
	Field string
	Key   string
}

type ValidationError []FieldError

func (v ValidationError) Error() string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = f.Field + ": " + f.Key
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Has reports whether field failed validation.
func (v ValidationError) Has(field string) bool {
	for _, f := range v {
		if f.Field == field {
			return true
		}
	}
	return false
}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type MemberDraft struct {
	ParentName string `json:"parent_name"`
	KidName    string `json:"kid_name"`
	Email      string `json:"email"`
}

func (d *MemberDraft) Normalize() {
	d.ParentName = strings.TrimSpace(d.ParentName)
	d.KidName = strings.TrimSpace(d.KidName)
	d.Email = strings.TrimSpace(d.Email)
}

func (d MemberDraft) Validate() error {
	var errs ValidationError
	if strings.TrimSpace(d.ParentName) == "" {
		errs = append(errs, FieldError{"parent_name", "error_parent_name_required"})
	}
	if strings.TrimSpace(d.KidName) == "" {
		errs = append(errs, FieldError{"kid_name", "error_kid_name_required"})
	}
	if e := strings.TrimSpace(d.Email); e != "" && !emailPattern.MatchString(e) {
		errs = append(errs, FieldError{"email", "error_email_invalid"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BookDraft is the body of add and update book calls. New books always start
// available; the server flips the status on borrow and return.
type BookDraft struct {
	Title            string            `json:"title"`
	Author           string            `json:"author"`
	Description      string            `json:"description"`
	Year             int               `json:"year_of_publication,omitempty"`
	Pages            int               `json:"pages,omitempty"`
	CoverType        domain.CoverType  `json:"cover_type"`
	Condition        domain.Condition  `json:"book_condition"`
	RecommendedAge   string            `json:"recommended_age"`
	LoanStatus       domain.LoanStatus `json:"loan_status,omitempty"`
	DeliveringParent string            `json:"delivering_parent"`
}

// DraftFromBook prefills an edit form.
func DraftFromBook(b *domain.Book) BookDraft {
	return BookDraft{
		Title:            b.Title,
		Author:           b.Author,
		Description:      b.Description,
		Year:             int(b.Year),
		Pages:            int(b.Pages),
		CoverType:        b.CoverType,
		Condition:        b.Condition,
		RecommendedAge:   b.RecommendedAge,
		DeliveringParent: b.DeliveringParent,
	}
}

// Normalize trims text fields and applies the default condition.
func (d *BookDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.Description = strings.TrimSpace(d.Description)
	d.RecommendedAge = strings.TrimSpace(d.RecommendedAge)
	d.DeliveringParent = strings.TrimSpace(d.DeliveringParent)
	if d.Condition == "" {
		d.Condition = domain.DefaultCondition
	}
}

func (d BookDraft) Validate() error {
	var errs ValidationError
	if strings.TrimSpace(d.Title) == "" {
		errs = append(errs, FieldError{"title", "error_book_title_required"})
	}
	if strings.TrimSpace(d.Author) == "" {
		errs = append(errs, FieldError{"author", "error_book_author_required"})
	}
	if d.CoverType != "" && !domain.ValidCoverType(d.CoverType) {
		errs = append(errs, FieldError{"cover_type", "error_cover_type_invalid"})
	}
	if d.Condition != "" && !domain.ValidCondition(d.Condition) {
		errs = append(errs, FieldError{"book_condition", "error_condition_invalid"})
	}
	if d.Year < 0 {
		errs = append(errs, FieldError{"year_of_publication", "error_year_invalid"})
	}
	if d.Pages < 0 {
		errs = append(errs, FieldError{"pages", "error_pages_invalid"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
