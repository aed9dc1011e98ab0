package model

import "time"

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationKindClaim   NotificationKind = "claim"
	NotificationKindCancel  NotificationKind = "cancel"
	NotificationKindMessage NotificationKind = "message"
)

// Notification 通知事件（按 recipient_id 组织的收件箱）
// 只有 MarkRead 会修改 Read，事件不删除
type Notification struct {
	ID              string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Kind            NotificationKind `json:"kind" gorm:"type:varchar(16);not null"`
	SubjectRecordID string           `json:"subjectRecordId" gorm:"type:varchar(36);index"`
	RecipientID     string           `json:"recipientId" gorm:"type:varchar(36);index:idx_notification_recipient_ts;not null"`
	ActorID         string           `json:"actorId" gorm:"type:varchar(36)"`
	Message         string           `json:"message" gorm:"type:text"`
	Read            bool             `json:"read" gorm:"column:is_read;not null;default:false"`
	Timestamp       time.Time        `json:"timestamp" gorm:"index:idx_notification_recipient_ts"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}
