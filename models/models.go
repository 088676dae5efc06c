package models

import (
	"time"

	"github.com/google/uuid"
)

// User model
type User struct {
	ID                int       `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Password          string    `json:"-"`
	Role              string    `json:"role"`
	PasswordChangedAt time.Time `json:"passwordChangedAt"`
	Deleted           bool      `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// LecturerAccount extends a user with lecturer profile data.
type LecturerAccount struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Faculty    string    `json:"faculty"`
	Phone      string    `json:"phone"`
	Bio        *string   `json:"bio"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Course model
type Course struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question model. CorrectOption is never serialized into session payloads
// before submission; handlers deciding what to expose use their own DTOs.
type Question struct {
	ID            int       `json:"id"`
	CourseID      int       `json:"courseId"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption string    `json:"correct_option,omitempty"`
	Year          string    `json:"year"`
	SourceFile    *string   `json:"source_file,omitempty"`
	Status        string    `json:"status"`
	UploadedByID  *int      `json:"uploaded_by,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TestSession is one user's timed attempt at a frozen question set.
type TestSession struct {
	ID            uuid.UUID  `json:"id"`
	UserID        int        `json:"userId"`
	CourseID      int        `json:"courseId"`
	QuestionCount int        `json:"question_count"`
	Duration      int        `json:"duration"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Score         *int       `json:"score"`
}

// GroupTest is a scheduling template; sessions are materialized lazily
// per invitee once scheduled_start has passed.
type GroupTest struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	CourseID        int       `json:"courseId"`
	QuestionCount   int       `json:"question_count"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedByID     int       `json:"created_by"`
	Invitees        string    `json:"invitees"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Material is an uploaded course document stored in GCS.
type Material struct {
	ID           int       `json:"id"`
	CourseID     int       `json:"courseId"`
	Name         string    `json:"name"`
	Tags         string    `json:"tags"`
	FileURL      string    `json:"file_url"`
	ObjectKey    string    `json:"-"`
	UploadedByID int       `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Update is an announcement/blog post.
type Update struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Body      string    `json:"body"`
	AuthorID  *int      `json:"author"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment belongs to an update; root comments have ParentID nil.
type Comment struct {
	ID        int       `json:"id"`
	UpdateID  int       `json:"updateId"`
	UserID    int       `json:"userId"`
	Username  string    `json:"username"`
	ParentID  *int      `json:"parent"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []Comment `json:"replies,omitempty"`
}

// ActivationCode gates premium features.
type ActivationCode struct {
	ID        int        `json:"id"`
	Code      string     `json:"code"`
	IsUsed    bool       `json:"is_used"`
	UsedByID  *int       `json:"used_by"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"createdAt"`
}

type UserActivation struct {
	ID               int        `json:"id"`
	UserID           int        `json:"userId"`
	Status           string     `json:"status"`
	ActivationCodeID *int       `json:"activation_code"`
	ActivatedAt      *time.Time `json:"activated_at"`
}

type MonetizationSettings struct {
	ID          int       `json:"id"`
	IsEnabled   bool      `json:"is_enabled"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	PaymentInfo string    `json:"payment_info"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EmailMessage is an admin broadcast; SentAt is stamped once after the
// batched send completes.
type EmailMessage struct {
	ID         int        `json:"id"`
	Subject    string     `json:"subject"`
	Content    string     `json:"content"`
	ButtonText string     `json:"button_text"`
	ButtonLink string     `json:"button_link"`
	CreatedAt  time.Time  `json:"createdAt"`
	SentAt     *time.Time `json:"sent_at"`
}

// SpecialCourse is a lecturer-run exam with a fixed time window.
type SpecialCourse struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedByID int       `json:"created_by"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SpecialQuestion struct {
	ID       int             `json:"id"`
	CourseID int             `json:"courseId"`
	Text     string          `json:"text"`
	Mark     float64         `json:"mark"`
	Choices  []SpecialChoice `json:"choices,omitempty"`
}

type SpecialChoice struct {
	ID         int    `json:"id"`
	QuestionID int    `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct,omitempty"`
}

type SpecialEnrollment struct {
	ID          int        `json:"id"`
	CourseID    int        `json:"courseId"`
	UserID      int        `json:"userId"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	Started     bool       `json:"started"`
	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Score       *float64   `json:"score"`
}
