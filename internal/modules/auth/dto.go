package auth

import "healthtrack/internal/domain"

type EmergencyContactRequest struct {
	Name         string `json:"name" binding:"omitempty,personname"`
	Relationship string `json:"relationship" binding:"omitempty,personname"`
	Phone        string `json:"phone" binding:"omitempty,phone"`
}

type RegisterRequest struct {
	Username           string                   `json:"username" binding:"required,min=3,max=64,username"`
	Email              string                   `json:"email" binding:"required,max=255,email"`
	Password           string                   `json:"password" binding:"required,password"`
	FirstName          string                   `json:"firstName" binding:"required,personname"`
	LastName           string                   `json:"lastName" binding:"required,personname"`
	DateOfBirth        string                   `json:"dateOfBirth" binding:"required,pastdate"`
	Gender             string                   `json:"gender" binding:"required,oneof=male female other"`
	Height             *float64                 `json:"height" binding:"omitempty,gte=0,lte=300"`
	Weight             *float64                 `json:"weight" binding:"omitempty,gte=0,lte=500"`
	BloodType          string                   `json:"bloodType" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	MedicalConditions  []string                 `json:"medicalConditions" binding:"omitempty,dive,max=200"`
	Allergies          []string                 `json:"allergies" binding:"omitempty,dive,max=200"`
	CurrentMedications []string                 `json:"currentMedications" binding:"omitempty,dive,max=200"`
	EmergencyContact   *EmergencyContactRequest `json:"emergencyContact"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is optional; the token may come from the refreshToken cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest changes only the fields that are present.
type UpdateProfileRequest struct {
	FirstName          *string                  `json:"firstName" binding:"omitempty,personname"`
	LastName           *string                  `json:"lastName" binding:"omitempty,personname"`
	DateOfBirth        *string                  `json:"dateOfBirth" binding:"omitempty,pastdate"`
	Gender             *string                  `json:"gender" binding:"omitempty,oneof=male female other"`
	Height             *float64                 `json:"height" binding:"omitempty,gte=0,lte=300"`
	Weight             *float64                 `json:"weight" binding:"omitempty,gte=0,lte=500"`
	BloodType          *string                  `json:"bloodType" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	MedicalConditions  []string                 `json:"medicalConditions" binding:"omitempty,dive,max=200"`
	Allergies          []string                 `json:"allergies" binding:"omitempty,dive,max=200"`
	CurrentMedications []string                 `json:"currentMedications" binding:"omitempty,dive,max=200"`
	EmergencyContact   *EmergencyContactRequest `json:"emergencyContact"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,password"`
}

type UserPublic struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserPublic(u *domain.User) UserPublic {
	return UserPublic{ID: u.ID, Username: u.Username, Email: u.Email}
}

type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Tokens    TokensResponse      `json:"tokens"`
	CSRFToken string              `json:"csrfToken"`
	User      UserPublic          `json:"user"`
	Profile   *domain.ProfileView `json:"profile"`
}

type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	CSRFToken    string `json:"csrfToken"`
}

type MeResponse struct {
	User    UserPublic          `json:"user"`
	Profile *domain.ProfileView `json:"profile"`
}

type CSRFResponse struct {
	CSRFToken string `json:"csrfToken"`
}
