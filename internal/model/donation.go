package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DonationStatus 捐赠记录生命周期状态
type DonationStatus string

const (
	DonationStatusAvailable DonationStatus = "available"
	DonationStatusClaimed   DonationStatus = "claimed"
	DonationStatusCompleted DonationStatus = "completed"
)

// 旧版前端使用 reserved 表示已认领，仅在解码时兼容
const legacyStatusReserved = "reserved"

// ErrInvalidRecord 记录违反 claimant/status 不变式
var ErrInvalidRecord = errors.New("invalid donation record")

func (s DonationStatus) Valid() bool {
	switch s {
	case DonationStatusAvailable, DonationStatusClaimed, DonationStatusCompleted:
		return true
	}
	return false
}

func (s *DonationStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == legacyStatusReserved {
		raw = string(DonationStatusClaimed)
	}
	st := DonationStatus(raw)
	if !st.Valid() {
		return fmt.Errorf("unknown donation status %q", raw)
	}
	*s = st
	return nil
}

// Donation 捐赠记录
// 不变式：ClaimantID 非空 当且仅当 Status == claimed
type Donation struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Status       DonationStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	DonorID      string         `json:"donorId" gorm:"type:varchar(36);index:idx_donation_donor;not null"`
	DonorName    string         `json:"donorName" gorm:"type:varchar(128)"`
	ClaimantID   *string        `json:"claimantId" gorm:"type:varchar(36);index:idx_donation_claimant"`
	ClaimantName *string        `json:"claimantName,omitempty" gorm:"type:varchar(128)"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null"`
	Description  string         `json:"description" gorm:"type:text"`
	Quantity     string         `json:"quantity" gorm:"type:varchar(64)"`
	Expiry       string         `json:"expiry" gorm:"type:varchar(64)"`
	Location     string         `json:"location" gorm:"type:varchar(255)"`
	Image        string         `json:"image" gorm:"type:text"`
	Version      int64          `json:"version" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"index;autoCreateTime:false"`
	UpdatedAt    time.Time      `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

func (Donation) TableName() string { return "donations" }

// ClaimedBy 返回认领人 ID，未认领时为空串
func (d *Donation) ClaimedBy() string {
	if d.ClaimantID == nil {
		return ""
	}
	return *d.ClaimantID
}

// Validate 检查状态与认领人的一致性
func (d *Donation) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, d.Status)
	}
	claimed := d.ClaimantID != nil && *d.ClaimantID != ""
	if claimed != (d.Status == DonationStatusClaimed) {
		return fmt.Errorf("%w: status %s with claimant %q", ErrInvalidRecord, d.Status, d.ClaimedBy())
	}
	return nil
}

// Clone 深拷贝，存储层对外只交出副本
func (d *Donation) Clone() *Donation {
	if d == nil {
		return nil
	}
	cp := *d
	if d.ClaimantID != nil {
		id := *d.ClaimantID
		cp.ClaimantID = &id
	}
	if d.ClaimantName != nil {
		name := *d.ClaimantName
		cp.ClaimantName = &name
	}
	return &cp
}
