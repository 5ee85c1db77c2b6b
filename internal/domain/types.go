package domain

import "time"

type LoanStatus string

const (
	LoanStatusAvailable LoanStatus = "available"
	LoanStatusBorrowed  LoanStatus = "borrowed"
)

// CoverType values are the server's wire strings.
type CoverType string

const (
	CoverSoft    CoverType = "כריכה רכה"
	CoverHard    CoverType = "כריכה קשה"
	CoverRigid   CoverType = "עמודים קשיחים"
	CoverBattery CoverType = "ספר עם בטריה"
)

var CoverTypes = []CoverType{CoverSoft, CoverHard, CoverRigid, CoverBattery}

// Condition is the physical state of a book, recorded on intake and at every
// handoff. Values are the server's wire strings.
type Condition string

const (
	ConditionNew  Condition = "כמו חדש"
	ConditionGood Condition = "מצויין - בלאי בלתי מורגש"
	ConditionWorn Condition = "טוב - בלאי קל"
)

var Conditions = []Condition{ConditionNew, ConditionGood, ConditionWorn}

// DefaultCondition is applied when a book draft leaves the condition empty.
const DefaultCondition = ConditionWorn

func ValidCoverType(c CoverType) bool {
	for _, v := range CoverTypes {
		if v == c {
			return true
		}
	}
	return false
}

func ValidCondition(c Condition) bool {
	for _, v := range Conditions {
		if v == c {
			return true
		}
	}
	return false
}

type Book struct {
	ID               int64      `json:"id"`
	QRCode           string     `json:"qr_code"`
	Title            string     `json:"title"`
	Author           string     `json:"author"`
	Description      string     `json:"description"`
	Year             FlexInt    `json:"year_of_publication"`
	Pages            FlexInt    `json:"pages"`
	CoverType        CoverType  `json:"cover_type"`
	Condition        Condition  `json:"book_condition"`
	RecommendedAge   string     `json:"recommended_age"`
	LoanStatus       LoanStatus `json:"loan_status"`
	DeliveringParent string     `json:"delivering_parent"`
	BorrowingChild   string     `json:"borrowing_child,omitempty"`
	DeliveryStatus   Condition  `json:"delivery_status,omitempty"`
}

func (b *Book) Borrowed() bool {
	return b.LoanStatus == LoanStatusBorrowed
}

type Member struct {
	ID                 int64  `json:"id"`
	ParentName         string `json:"parent_name"`
	KidName            string `json:"kid_name"`
	Email              string `json:"email,omitempty"`
	BorrowedBooksCount int    `json:"borrowed_books_count"`
}

// Deletable reports whether the server will accept a delete for this member.
func (m *Member) Deletable() bool {
	return m.BorrowedBooksCount == 0
}

type Loan struct {
	ID               int64      `json:"id"`
	BookID           int64      `json:"book_id"`
	QRCode           string     `json:"qr_code"`
	BookTitle        string     `json:"book_title"`
	MemberID         int64      `json:"member_id"`
	BorrowerName     string     `json:"borrower_name"`
	BookState        Condition  `json:"book_state"`
	BorrowedAt       *Timestamp `json:"borrowed_at"`
	ReturnedAt       *Timestamp `json:"returned_at"`
	LastReminderDate *Timestamp `json:"last_reminder_date,omitempty"`
}

// Open reports whether the book has not been returned yet.
func (l *Loan) Open() bool {
	return l.ReturnedAt == nil || l.ReturnedAt.IsZero()
}

type Reminder struct {
	ID     int64      `json:"id,omitempty"`
	LoanID int64      `json:"loan_id,omitempty"`
	SentAt *Timestamp `json:"sent_at"`
}

// CatalogEntry is one selectable row of the QR label sheet.
type CatalogEntry struct {
	ID     int64  `json:"id"`
	QRCode string `json:"qr_code"`
	Title  string `json:"title"`
}

// Session is the bearer token the operator obtained at login.
type Session struct {
	Token    string
	Username string
	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time
	SavedAt   time.Time
}

// Expired reports whether the token's own expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
