package dto

// CoachRequest is shared by coach create and update.
type CoachRequest struct {
	Name            string `json:"name" validate:"required,max=64"`
	Phone           string `json:"phone" validate:"required,max=32"`
	Gender          string `json:"gender" validate:"omitempty,oneof=男 女"`
	LicenseNo       string `json:"license_no" validate:"omitempty,max=64"`
	TeachingSubject int    `json:"teaching_subject" validate:"omitempty,min=1,max=4"`
	Status          string `json:"status" validate:"omitempty,oneof=在职 离职"`
	HireDate        string `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	Notes           string `json:"notes"`
}
