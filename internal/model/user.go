package model

import "time"

// Role 由上游身份提供方给出
type Role string

const (
	RoleDonor    Role = "donor"
	RoleReceiver Role = "receiver"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleDonor || r == RoleReceiver || r == RoleAdmin
}

// User 捐赠方/接收方/管理员
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	Role      Role      `json:"role" gorm:"type:varchar(16);index;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (User) TableName() string { return "users" }
