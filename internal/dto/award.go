package dto

// CreateAwardRequest files a prize claim against an approved application.
type CreateAwardRequest struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	AwardLevel    string `json:"awardLevel" validate:"required,oneof=SPECIAL_PRIZE FIRST_PRIZE SECOND_PRIZE THIRD_PRIZE EXCELLENCE"`
	CertificateNo string `json:"certificateNo" validate:"required,max=50"`
}

// AwardListQuery captures award list query parameters.
type AwardListQuery struct {
	Status           string `form:"status" validate:"omitempty,oneof=PENDING_DEPARTMENT PENDING_SCHOOL APPROVED REJECTED"`
	AwardLevel       string `form:"awardLevel" validate:"omitempty,oneof=SPECIAL_PRIZE FIRST_PRIZE SECOND_PRIZE THIRD_PRIZE EXCELLENCE"`
	CompetitionLevel string `form:"competitionLevel" validate:"omitempty,oneof=A B C D E"`
	DepartmentID     string `form:"departmentId"`
	Page             int    `form:"page"`
	PageSize         int    `form:"pageSize"`
}

// CertificateBatchRequest selects the awards exported into one certificate PDF.
type CertificateBatchRequest struct {
	AwardIDs []string `json:"awardIds" validate:"required,min=1,dive,required"`
}
