// Package domain file: internal/core/domain/company.go
package domain

// Company 是一家发布职位的公司。NumEmployees 与 LogoURL 允许为空。
type Company struct {
	Handle       string  `json:"handle"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	NumEmployees *int    `json:"numEmployees"`
	LogoURL      *string `json:"logoUrl"`
}

// CompanyDetail 是公司详情，附带其发布的全部职位。
type CompanyDetail struct {
	Company
	Jobs []JobSummary `json:"jobs"`
}

// NewCompany 是创建公司时的输入
type NewCompany struct {
	Handle       string  `json:"handle" binding:"required,min=1,max=25"`
	Name         string  `json:"name" binding:"required,min=1"`
	Description  string  `json:"description" binding:"required"`
	NumEmployees *int    `json:"numEmployees" binding:"omitempty,min=0"`
	LogoURL      *string `json:"logoUrl" binding:"omitempty,url"`
}

// CompanyFilter 是公司列表的可选过滤条件，nil 表示未提供。
type CompanyFilter struct {
	Name         *string `form:"name"`
	MinEmployees *int    `form:"minEmployees" binding:"omitempty,min=0"`
	MaxEmployees *int    `form:"maxEmployees" binding:"omitempty,min=0"`
}
