package model

import "time"

// Message 用户间私信，可关联某条捐赠
type Message struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SenderID   string    `json:"senderId" gorm:"type:varchar(36);index:idx_message_pair;not null"`
	ReceiverID string    `json:"receiverId" gorm:"type:varchar(36);index:idx_message_pair;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	DonationID string    `json:"donationId,omitempty" gorm:"type:varchar(36)"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

func (Message) TableName() string { return "messages" }
