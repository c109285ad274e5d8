package local

import "time"

type account struct {
	UID          string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"size:320;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	DisplayName  string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (account) TableName() string { return "account" }

type refreshToken struct {
	Token     string    `gorm:"primaryKey;size:36"`
	UID       string    `gorm:"size:36;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (refreshToken) TableName() string { return "refresh_token" }

type inviteCode struct {
	Code        string    `gorm:"primaryKey;size:255"`
	DisplayName string    `gorm:"size:255;not null"`
	Used        bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (inviteCode) TableName() string { return "invite_code" }

type channel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (channel) TableName() string { return "channel" }

type message struct {
	ID          string    `gorm:"primaryKey;size:36"`
	ChannelID   string    `gorm:"size:36;not null;index:idx_message_channel_created,priority:1"`
	Text        string    `gorm:"type:text;not null"`
	UID         string    `gorm:"size:36;not null"`
	DisplayName string    `gorm:"size:255"`
	CreatedAt   time.Time `gorm:"not null;index:idx_message_channel_created,priority:2"`
}

func (message) TableName() string { return "message" }

// secret holds per-database key material.
type secret struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value []byte `gorm:"not null"`
}

func (secret) TableName() string { return "local_secret" }
