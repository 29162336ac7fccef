package dto

import "github.com/shopspring/decimal"

// TeacherRequest creates or updates a teacher. Levels are CEFR bands; leave
// them empty for a teacher cleared at every level.
type TeacherRequest struct {
	Email                 string           `json:"email" validate:"required,email"`
	FullName              string           `json:"fullName" validate:"required,max=200"`
	Phone                 *string          `json:"phone" validate:"omitempty,max=50"`
	NativeLanguage        *string          `json:"nativeLanguage" validate:"omitempty,max=64"`
	Languages             []string         `json:"languages" validate:"required,min=1,max=10,dive,required,max=64"`
	Levels                []string         `json:"levels" validate:"omitempty,dive,oneof=A1 A2 B1 B2 C1 C2"`
	KindergartenQualified bool             `json:"kindergartenQualified"`
	HourlyRate            *decimal.Decimal `json:"hourlyRate"`
	BranchID              *string          `json:"branchId"`
	Active                *bool            `json:"active"`
}

// StudentRequest creates or updates a student.
type StudentRequest struct {
	FullName   string  `json:"fullName" validate:"required,max=200"`
	BirthDate  *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Gender     *string `json:"gender" validate:"omitempty,oneof=M F"`
	ParentName *string `json:"parentName" validate:"omitempty,max=200"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Email      *string `json:"email" validate:"omitempty,email"`
	BranchID   *string `json:"branchId"`
	Active     *bool   `json:"active"`
}

// RegionRequest creates a region.
type RegionRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Code string `json:"code" validate:"required,max=20"`
}

// SchoolRequest creates a school within a region.
type SchoolRequest struct {
	RegionID string  `json:"regionId" validate:"required"`
	Name     string  `json:"name" validate:"required,max=200"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
}

// BranchRequest creates a branch within a school.
type BranchRequest struct {
	SchoolID string  `json:"schoolId" validate:"required"`
	Name     string  `json:"name" validate:"required,max=200"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
}
