package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type admin20241015 struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name           string    `gorm:"type:varchar(255);not null"`
	BankName       string    `gorm:"type:varchar(255)"`
	Role           string    `gorm:"type:varchar(20);not null;index"`
	Status         string    `gorm:"type:varchar(20);not null;default:'active'"`
	PasswordHashed string    `gorm:"type:varchar(255);not null"`
	LastLoginAt    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (admin20241015) TableName() string { return "admins" }

type deviceCode20241015 struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code        string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status      string          `gorm:"type:varchar(20);not null;default:'available';index"`
	SoldTo      *uuid.UUID      `gorm:"type:uuid;index"`
	SoldAt      *time.Time
	ActivatedAt *time.Time
	LockReason  *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (deviceCode20241015) TableName() string { return "device_codes" }

type device20241015 struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID        string    `gorm:"type:varchar(128);not null;uniqueIndex"`
	Model           string    `gorm:"type:varchar(255)"`
	Manufacturer    string    `gorm:"type:varchar(255)"`
	OSVersion       string    `gorm:"column:os_version;type:varchar(64)"`
	IMEI            string    `gorm:"column:imei;type:varchar(32)"`
	IsRooted        bool      `gorm:"not null;default:false"`
	DeviceCodeID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Status          string    `gorm:"type:varchar(20);not null;default:'active';index"`
	LockReason      *string   `gorm:"type:text"`
	StatusChangedAt time.Time `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (device20241015) TableName() string { return "devices" }

type paymentPlan20241015 struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DeviceCodeID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	InstallmentCount int             `gorm:"not null"`
	CompletedAt      *time.Time
	CreatedBy        string    `gorm:"type:varchar(100)"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (paymentPlan20241015) TableName() string { return "payment_plans" }

type paymentInstallment20241015 struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PlanID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_installment_plan_seq"`
	DeviceCodeID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Sequence     int                 `gorm:"not null;uniqueIndex:idx_installment_plan_seq"`
	Amount       decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	DueDate      time.Time           `gorm:"not null;index"`
	Status       string              `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAmount   decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	PaidDate     *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (paymentInstallment20241015) TableName() string { return "payment_installments" }

type securityEvaluation20241015 struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID          uuid.UUID `gorm:"type:uuid;not null;index:idx_security_eval_device_time,priority:1"`
	Category          string    `gorm:"type:varchar(32);not null"`
	RootStatusMatches bool      `gorm:"not null"`
	BootloaderLocked  bool      `gorm:"not null"`
	AttestationPassed bool      `gorm:"not null"`
	Passed            bool      `gorm:"not null"`
	Reason            string    `gorm:"type:varchar(255)"`
	EvaluatedAt       time.Time `gorm:"not null;index:idx_security_eval_device_time,priority:2"`
}

func (securityEvaluation20241015) TableName() string { return "security_evaluations" }

func migrate20241015_0000() *gormigrate.Migration {
	return CreateMigrationFromActions("20241015-0000",
		CreateTableAction(&admin20241015{}),
		CreateTableAction(&deviceCode20241015{}),
		CreateTableAction(&device20241015{}),
		CreateTableAction(&paymentPlan20241015{}),
		CreateTableAction(&paymentInstallment20241015{}),
		CreateTableAction(&securityEvaluation20241015{}),
	)
}
