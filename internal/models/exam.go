package models

import "time"

// ExamSubject identifies one of the four licensing exams.
type ExamSubject int

const (
	SubjectOne   ExamSubject = 1
	SubjectTwo   ExamSubject = 2
	SubjectThree ExamSubject = 3
	SubjectFour  ExamSubject = 4
)

var subjectLabels = map[ExamSubject]string{
	SubjectOne:   "科目一",
	SubjectTwo:   "科目二",
	SubjectThree: "科目三",
	SubjectFour:  "科目四",
}

// Valid reports whether the subject is in range 1-4.
func (s ExamSubject) Valid() bool {
	return s >= SubjectOne && s <= SubjectFour
}

// Label returns the display name of the subject.
func (s ExamSubject) Label() string {
	if label, ok := subjectLabels[s]; ok {
		return label
	}
	return "未知科目"
}

// ExamResult is the outcome stored on a registration.
type ExamResult string

const (
	ExamResultPending ExamResult = "pending"
	ExamResultPass    ExamResult = "通过"
	ExamResultFail    ExamResult = "未通过"
)

// ExamSchedule is a scheduled exam session with limited seats.
type ExamSchedule struct {
	ID            string      `db:"id" json:"id"`
	Subject       ExamSubject `db:"subject" json:"subject"`
	ExamDate      time.Time   `db:"exam_date" json:"exam_date"`
	Location      string      `db:"location" json:"location"`
	Capacity      int         `db:"capacity" json:"capacity"`
	ArrangedCount int         `db:"arranged_count" json:"arranged_count"`
	Notes         string      `db:"notes" json:"notes"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// ExamScheduleFilter captures list criteria for schedules.
type ExamScheduleFilter struct {
	Subject  ExamSubject
	DateFrom *time.Time
	DateTo   *time.Time
	ListOptions
}

// ExamRegistration links a student to a schedule and carries the outcome.
type ExamRegistration struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	ScheduleID string     `db:"schedule_id" json:"schedule_id"`
	ExamResult ExamResult `db:"exam_result" json:"exam_result"`
	Score      *int       `db:"score" json:"score,omitempty"`
	ResultDate *time.Time `db:"result_date" json:"result_date,omitempty"`
	Notes      string     `db:"notes" json:"notes"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ExamRegistrationDetail adds student and schedule context.
type ExamRegistrationDetail struct {
	ExamRegistration
	StudentName string      `db:"student_name" json:"student_name"`
	Subject     ExamSubject `db:"subject" json:"subject"`
	ExamDate    time.Time   `db:"exam_date" json:"exam_date"`
	Location    string      `db:"location" json:"location"`
}

// ExamRegistrationFilter captures list criteria for registrations.
type ExamRegistrationFilter struct {
	StudentID  string
	ScheduleID string
	ExamResult ExamResult
	ListOptions
}

// SubjectStatus is the per-subject progress state.
type SubjectStatus string

const (
	SubjectStatusNotTaken SubjectStatus = "未考"
	SubjectStatusPassed   SubjectStatus = "已通过"
	SubjectStatusFailed   SubjectStatus = "未通过"
)

// Qualification reports whether a student may still sit exams.
type Qualification string

const (
	QualificationNormal  Qualification = "正常"
	QualificationRevoked Qualification = "已作废"
)

// SubjectProgress is the state of one subject for one student.
type SubjectProgress struct {
	Subject     ExamSubject   `json:"subject"`
	Status      SubjectStatus `json:"status"`
	TotalCount  int           `json:"total_count"`
	FailedCount int           `json:"failed_count"`
	PassDate    *time.Time    `json:"pass_date,omitempty"`
}

// ExamProgress aggregates a student's progress across all four subjects.
type ExamProgress struct {
	StudentID          string             `json:"student_id"`
	StudentName        string             `json:"student_name,omitempty"`
	Subjects           [4]SubjectProgress `json:"subjects"`
	TotalProgress      int                `json:"total_progress"`
	ExamQualification  Qualification      `json:"exam_qualification"`
	DisqualifiedDate   *time.Time         `json:"disqualified_date,omitempty"`
	DisqualifiedReason string             `json:"disqualified_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewExamProgress returns the initial progress of a student who has not sat any exam.
func NewExamProgress(studentID string) *ExamProgress {
	p := &ExamProgress{StudentID: studentID, ExamQualification: QualificationNormal}
	for i := range p.Subjects {
		p.Subjects[i] = SubjectProgress{Subject: ExamSubject(i + 1), Status: SubjectStatusNotTaken}
	}
	return p
}

// Subject returns a pointer to the progress of the given subject.
func (p *ExamProgress) Subject(s ExamSubject) *SubjectProgress {
	if !s.Valid() {
		return nil
	}
	return &p.Subjects[int(s)-1]
}

// ExamProgressFilter captures list criteria for progress rows.
type ExamProgressFilter struct {
	Qualification Qualification
	Search        string
	ListOptions
}

// WarningType classifies an exam warning log entry.
type WarningType string

const (
	WarningTypeThirdFailure  WarningType = "3次预警"
	WarningTypeFourthFailure WarningType = "4次预警"
	WarningTypeRevoked       WarningType = "资格作废"
)

// ExamWarningLog is an append-only escalation record.
type ExamWarningLog struct {
	ID          string      `db:"id" json:"id"`
	StudentID   string      `db:"student_id" json:"student_id"`
	Subject     ExamSubject `db:"subject" json:"subject"`
	WarningType WarningType `db:"warning_type" json:"warning_type"`
	FailedCount int         `db:"failed_count" json:"failed_count"`
	Message     string      `db:"message" json:"message"`
	IsHandled   bool        `db:"is_handled" json:"is_handled"`
	HandledBy   *string     `db:"handled_by" json:"handled_by,omitempty"`
	HandledAt   *time.Time  `db:"handled_at" json:"handled_at,omitempty"`
	HandleNotes *string     `db:"handle_notes" json:"handle_notes,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// ExamWarningDetail adds the student name for listings.
type ExamWarningDetail struct {
	ExamWarningLog
	StudentName string `db:"student_name" json:"student_name"`
}

// ExamWarningFilter captures list criteria for warnings.
type ExamWarningFilter struct {
	StudentID   string
	WarningType WarningType
	IsHandled   *bool
	ListOptions
}

// ExamResultOutcome describes everything a recorded result changed.
type ExamResultOutcome struct {
	Registration     ExamRegistration  `json:"registration"`
	Progress         ExamProgress      `json:"progress"`
	Warnings         []ExamWarningLog  `json:"warnings"`
	EnrollmentStatus *EnrollmentStatus `json:"enrollment_status,omitempty"`
}
