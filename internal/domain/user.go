package domain

import (
	"math"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// BloodTypes lists the accepted blood groups.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// User is a registered identity. Username and email are unique and compared
// case-sensitively.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Username     string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Profile holds the patient data captured at registration.
type Profile struct {
	ID                 string            `json:"id" gorm:"primaryKey;size:36"`
	UserID             string            `json:"userId" gorm:"size:36;uniqueIndex;not null"`
	User               *User             `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	FirstName          string            `json:"firstName" gorm:"not null"`
	LastName           string            `json:"lastName" gorm:"not null"`
	DateOfBirth        time.Time         `json:"dateOfBirth" gorm:"not null"`
	Gender             Gender            `json:"gender" gorm:"size:16;not null"`
	Height             *float64          `json:"height,omitempty"`
	Weight             *float64          `json:"weight,omitempty"`
	BloodType          string            `json:"bloodType,omitempty" gorm:"size:3"`
	MedicalConditions  []string          `json:"medicalConditions" gorm:"serializer:json"`
	Allergies          []string          `json:"allergies" gorm:"serializer:json"`
	CurrentMedications []string          `json:"currentMedications" gorm:"serializer:json"`
	EmergencyContact   *EmergencyContact `json:"emergencyContact,omitempty" gorm:"serializer:json"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// BMI returns weight / height(m)^2 rounded to one decimal, or nil when either
// measurement is missing.
func (p *Profile) BMI() *float64 {
	if p.Height == nil || p.Weight == nil || *p.Height <= 0 {
		return nil
	}
	m := *p.Height / 100
	bmi := math.Round(*p.Weight/(m*m)*10) / 10
	return &bmi
}

// ProfileView is the public representation of a profile.
type ProfileView struct {
	*Profile
	BMI *float64 `json:"bmi,omitempty"`
}

func (p *Profile) View() *ProfileView {
	if p == nil {
		return nil
	}
	return &ProfileView{Profile: p, BMI: p.BMI()}
}
