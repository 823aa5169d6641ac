// Package domain file: internal/core/domain/user.go
package domain

// User 是平台用户。密码哈希从不离开存储层。
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
}

// NewUser 是注册或由管理员创建用户时的输入。
// 自助注册时 IsAdmin 会被强制置为 false。
type NewUser struct {
	Username  string `json:"username" binding:"required,min=1,max=25"`
	Password  string `json:"password" binding:"required,min=5,max=20"`
	FirstName string `json:"firstName" binding:"required,min=1,max=30"`
	LastName  string `json:"lastName" binding:"required,min=1,max=30"`
	Email     string `json:"email" binding:"required,email,max=60"`
	IsAdmin   bool   `json:"isAdmin"`
}

// Credentials 是换取令牌时提交的用户名与密码
type Credentials struct {
	Username string `json:"username" binding:"required,min=1"`
	Password string `json:"password" binding:"required,min=1"`
}
