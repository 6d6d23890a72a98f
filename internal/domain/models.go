// Package domain defines the core data types of the application: the chat
// transcript entries, analysis results, persisted scan records, clinic search
// results, and the GORM-mapped account models.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Sender identifies the author of a transcript entry.
type Sender string

const (
	// SenderUser marks an entry written by the person using the dashboard.
	SenderUser Sender = "user"
	// SenderAssistant marks an entry produced by the remote assistant.
	SenderAssistant Sender = "assistant"
)

// ChatMessage is a single entry in a conversation transcript. Text is mutable
// while a reply is still streaming; once the stream completes the entry is
// never touched again.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// AnalysisResult is the structured outcome of one disease-detection call.
// It is immutable after creation; a new analysis replaces it wholesale.
type AnalysisResult struct {
	PredictedCondition string `json:"predicted_condition"`
	Recommendation     string `json:"recommendation"`
}

// ScanRecord is one persisted image analysis tied to a user identity.
//
// ImageData carries the base64 data-URL copy of the analyzed image exactly as
// submitted for storage. DetectedDisease keeps the raw upstream label;
// display formatting is applied separately and never persisted.
type ScanRecord struct {
	ID              string    `json:"id" firestore:"-"`
	UserID          string    `json:"user_id" firestore:"userId"`
	ImageData       string    `json:"image_url" firestore:"imageUrl"`
	DetectedDisease string    `json:"detected_disease" firestore:"detectedDisease"`
	Recommendation  string    `json:"recommendation" firestore:"recommendation"`
	CreatedAt       time.Time `json:"created_at" firestore:"-"`
}

// OpeningHours mirrors the places API opening-hours fragment.
type OpeningHours struct {
	OpenNow bool `json:"open_now"`
}

// Clinic is a single nearby-clinic search result. It is read-only to this
// system: fetched fresh per search and never persisted.
type Clinic struct {
	Name         string        `json:"name"`
	Vicinity     string        `json:"vicinity"`
	Rating       float64       `json:"rating"`
	OpeningHours *OpeningHours `json:"opening_hours,omitempty"`
}

// User is a registered account.
//
// Fields:
//   - ID: stable UUID primary key (char(36)); doubles as the uid returned by
//     signup and referenced by scan records.
//   - Email: unique login identifier.
//   - PasswordHash: bcrypt digest, never serialized.
//   - Name: display name shown in the dashboard.
type User struct {
	ID           string         `json:"id"    gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string         `json:"-"     gorm:"type:varchar(255);not null"`
	Name         string         `json:"name"  gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"     gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// AuthSession maps an issued auth token to its account. Tokens act as the
// second identity fallback when the client does not send a user object.
type AuthSession struct {
	Token     string    `json:"token"   gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AuthSession.
func (AuthSession) TableName() string { return "auth_sessions" }

// Preference is one per-user settings entry (theme, notification flags, ...).
// Keys are free-form; a user holds at most one row per key.
type Preference struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(255);not null;index;uniqueIndex:ux_pref_user_key"`
	Key       string         `json:"key"     gorm:"type:varchar(64);not null;uniqueIndex:ux_pref_user_key"`
	Value     string         `json:"value"   gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for Preference.
func (Preference) TableName() string { return "preferences" }
