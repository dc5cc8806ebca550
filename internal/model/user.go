package model

import (
	"time"
)

// Role is the access role stored for intranet users.
type Role string

const (
	RoleMaster Role = "MASTER"
	RoleAdmin  Role = "ADMIN"
	RoleUser   Role = "USER"
	RoleTO     Role = "TO"
	RoleFono   Role = "FONO"
	RolePsico  Role = "PSICO"
)

// User represents an intranet user (Usuarios table)
type User struct {
	ID        int64      `json:"usuario_id" db:"usuario_id"`
	Name      string     `json:"nome" db:"nome"`
	Email     *string    `json:"email" db:"email"`
	Password  *string    `json:"-" db:"senha"`
	Role      Role       `json:"role" db:"role"`
	Active    bool       `json:"ativo" db:"ativo"`
	CreatedAt time.Time  `json:"data_criacao" db:"data_criacao"`
	UpdatedAt *time.Time `json:"data_atualizacao" db:"data_atualizacao"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Name     string  `json:"nome" binding:"required,max=255"`
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Password string  `json:"senha" binding:"required,min=6,max=72"`
	Role     Role    `json:"role" binding:"omitempty,oneof=MASTER ADMIN USER TO FONO PSICO"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name   *string `json:"nome" binding:"omitempty,min=1,max=255"`
	Email  *string `json:"email" binding:"omitempty,email,max=255"`
	Role   *Role   `json:"role" binding:"omitempty,oneof=MASTER ADMIN USER TO FONO PSICO"`
	Active *bool   `json:"ativo"`
}

// LoginRequest accepts either the user name or e-mail as identifier.
type LoginRequest struct {
	Identifier string `json:"usuario" binding:"required,max=255"`
	Password   string `json:"senha" binding:"required,max=72"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	UserID          int64  `json:"usuario_id" binding:"required,min=1"`
	CurrentPassword string `json:"senha_atual" binding:"required,max=72"`
	NewPassword     string `json:"nova_senha" binding:"required,min=6,max=72"`
}

// StaffMember is a row of the legacy dfMed Usuarios table.
type StaffMember struct {
	Code        int64      `json:"usrCodigo" db:"usrCodigo"`
	Name        string     `json:"usrNome" db:"usrNome"`
	BirthDate   *time.Time `json:"usrDtNasc" db:"usrDtNasc"`
	IsDoctor    bool       `json:"usrFlagMedico" db:"usrFlagMedico"`
	FullName    *string    `json:"usrNomeCompleto" db:"usrNomeCompleto"`
	CRM         *string    `json:"usrCRM" db:"usrCRM"`
	Document    *string    `json:"usrCpfCgc" db:"usrCpfCgc"`
	Active      bool       `json:"usrFlagAtivo" db:"usrFlagAtivo"`
	Deleted     bool       `json:"usrFlagDeletado" db:"usrFlagDeletado"`
	Signature   []byte     `json:"usrAssinatura,omitempty" db:"usrAssinatura"`
	HasMessages bool       `json:"usrFlagTemMensagem" db:"usrFlagTemMensagem"`
}

// Candidate is a CadPac entry offered when registering intranet users.
type Candidate struct {
	Code int64  `json:"pacCodigo" db:"pacCodigo"`
	Name string `json:"pacNome" db:"pacNome"`
}
