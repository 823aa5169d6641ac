// Package domain file: internal/core/domain/job.go
package domain

// Job 是某家公司发布的一个职位。
// Salary 为空表示未公开，Equity 取值范围 [0, 1]。
type Job struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Salary        *int     `json:"salary"`
	Equity        *float64 `json:"equity"`
	CompanyHandle string   `json:"companyHandle"`
}

// JobSummary 是嵌在公司详情里的职位，不重复携带公司标识。
type JobSummary struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Salary *int     `json:"salary"`
	Equity *float64 `json:"equity"`
}

// NewJob 是创建职位时的输入
type NewJob struct {
	Title         string   `json:"title" binding:"required,min=1"`
	Salary        *int     `json:"salary" binding:"omitempty,min=0"`
	Equity        *float64 `json:"equity" binding:"omitempty,min=0,max=1"`
	CompanyHandle string   `json:"companyHandle" binding:"required,min=1,max=25"`
}

// JobFilter 是职位列表的可选过滤条件
type JobFilter struct {
	Title     *string `form:"title"`
	MinSalary *int    `form:"minSalary" binding:"omitempty,min=0"`
	MaxSalary *int    `form:"maxSalary" binding:"omitempty,min=0"`
	HasEquity *bool   `form:"hasEquity"`
}
