// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role identifies which approval stage queue a user acts in.
type Role string

const (
	// RoleRequisitioner submits concept papers.
	RoleRequisitioner Role = "requisitioner"
	// RoleSPS reviews papers at the SPS Review stage.
	RoleSPS Role = "sps"
	// RoleStudentAffairs reviews papers with students involved.
	RoleStudentAffairs Role = "student_affairs"
	// RoleVPAcad reviews papers at the VP Acad Review stage.
	RoleVPAcad Role = "vp_acad"
	// RoleAuditing reviews papers at the Auditing Review stage.
	RoleAuditing Role = "auditing"
	// RoleSeniorVP approves papers at the Senior VP Approval stage.
	RoleSeniorVP Role = "senior_vp"
	// RoleAccounting reviews papers at the Accounting Review stage.
	RoleAccounting Role = "accounting"
	// RoleVoucher prepares disbursement vouchers.
	RoleVoucher Role = "voucher"
	// RoleCashier releases cheques.
	RoleCashier Role = "cashier"
	// RoleAdmin administers deadline options and papers.
	RoleAdmin Role = "admin"
)

// ValidRoles is the closed set of roles a stage may be assigned to.
var ValidRoles = map[Role]bool{
	RoleRequisitioner:  true,
	RoleSPS:            true,
	RoleStudentAffairs: true,
	RoleVPAcad:         true,
	RoleAuditing:       true,
	RoleSeniorVP:       true,
	RoleAccounting:     true,
	RoleVoucher:        true,
	RoleCashier:        true,
	RoleAdmin:          true,
}

// User represents an account that submits or approves concept papers.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"unique;not null" json:"username"`
	Email      string         `gorm:"unique;not null" json:"email"`
	Password   string         `gorm:"not null" json:"-"`
	FullName   string         `gorm:"size:120;not null" json:"full_name"`
	Role       Role           `gorm:"type:varchar(30);not null;index" json:"role"`
	Department string         `gorm:"size:120" json:"department"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
