package dto

// CreateStudentRequest describes payload for enrolling a student.
type CreateStudentRequest struct {
	Name           string  `json:"name" validate:"required,max=64"`
	Gender         string  `json:"gender" validate:"omitempty,oneof=男 女"`
	IDCard         string  `json:"id_card" validate:"required,min=15,max=18"`
	Phone          string  `json:"phone" validate:"omitempty,max=32"`
	ClassTypeID    string  `json:"class_type_id" validate:"required"`
	CoachID        *string `json:"coach_id"`
	EnrollmentDate string  `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          string  `json:"notes"`
}

// UpdateStudentRequest covers general student fields. Financial fields are
// owned by the payment endpoints and cannot be written here.
type UpdateStudentRequest struct {
	Name             string  `json:"name" validate:"required,max=64"`
	Gender           string  `json:"gender" validate:"omitempty,oneof=男 女"`
	IDCard           string  `json:"id_card" validate:"required,min=15,max=18"`
	Phone            string  `json:"phone" validate:"omitempty,max=32"`
	CoachID          *string `json:"coach_id"`
	EnrollmentStatus string  `json:"enrollment_status"`
	Notes            string  `json:"notes"`
}
