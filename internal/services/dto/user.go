package dto

// UpdateProfileRequest - multipart: новое фото опционально и
// обрабатывается хендлером отдельно
type UpdateProfileRequest struct {
	Name  string `form:"name" json:"name" validate:"required,max=40"`
	Email string `form:"email" json:"email" validate:"required,email"`
}

// AdminUpdateUserRequest - админ может дополнительно сменить роль
type AdminUpdateUserRequest struct {
	Name  string `json:"name" validate:"required,max=40"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user manager admin"`
}
