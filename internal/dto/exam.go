package dto

// ExamScheduleRequest is shared by schedule create and update.
type ExamScheduleRequest struct {
	Subject  int    `json:"subject" validate:"required,min=1,max=4"`
	ExamDate string `json:"exam_date" validate:"required,datetime=2006-01-02"`
	Location string `json:"location" validate:"max=128"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
	Notes    string `json:"notes"`
}

// CreateRegistrationRequest books a student onto a schedule.
type CreateRegistrationRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ScheduleID string `json:"schedule_id" validate:"required"`
	Notes      string `json:"notes"`
}

// RecordResultRequest enters the outcome of an exam.
type RecordResultRequest struct {
	ExamResult string `json:"exam_result" validate:"required,oneof=通过 未通过"`
	Score      *int   `json:"score" validate:"omitempty,min=0,max=100"`
	Operator   string `json:"-"`
}

// HandleWarningRequest marks a warning handled.
type HandleWarningRequest struct {
	HandleNotes string `json:"handle_notes" validate:"max=500"`
	HandledBy   string `json:"-"`
}
