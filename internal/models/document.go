package models

import (
	"fmt"
	"strconv"
	"time"
)

// EntityKind - тип сущности, к которой относится документ
type EntityKind string

const (
	EntityVehicle       EntityKind = "vehicle"
	EntityIdentity      EntityKind = "identity"
	EntityPurchaseOrder EntityKind = "purchase_order"
)

// DocumentTypeInfo описывает, к какой сущности привязывается тип документа
type DocumentTypeInfo struct {
	Kind EntityKind
	Role IdentityRole // только для EntityIdentity
}

// DocumentTypes - каталог допустимых типов документов
var DocumentTypes = map[string]DocumentTypeInfo{
	"vehicle_registration": {Kind: EntityVehicle},
	"vehicle_insurance":    {Kind: EntityVehicle},
	"vehicle_puc":          {Kind: EntityVehicle},
	"puc":                  {Kind: EntityVehicle},

	"driver_aadhar":  {Kind: EntityIdentity, Role: RoleDriver},
	"driver_license": {Kind: EntityIdentity, Role: RoleDriver},
	"helper_aadhar":  {Kind: EntityIdentity, Role: RoleHelper},

	"po":                      {Kind: EntityPurchaseOrder},
	"purchase_order":          {Kind: EntityPurchaseOrder},
	"do":                      {Kind: EntityPurchaseOrder},
	"before_weighing":         {Kind: EntityPurchaseOrder},
	"after_weighing":          {Kind: EntityPurchaseOrder},
	"transportation_approval": {Kind: EntityPurchaseOrder},
	"payment_approval":        {Kind: EntityPurchaseOrder},
	"vendor_approval":         {Kind: EntityPurchaseOrder},
}

// Reference - ссылка документа на владеющую сущность.
// Реализации: VehicleRef, IdentityRef, PORef
type Reference interface {
	Kind() EntityKind
	Key() string
	isReference()
}

type VehicleRef struct {
	ID uint
}

func (VehicleRef) Kind() EntityKind { return EntityVehicle }
func (r VehicleRef) Key() string    { return strconv.FormatUint(uint64(r.ID), 10) }
func (VehicleRef) isReference()     {}

type IdentityRef struct {
	ID   uint
	Role IdentityRole
}

func (IdentityRef) Kind() EntityKind { return EntityIdentity }
func (r IdentityRef) Key() string    { return strconv.FormatUint(uint64(r.ID), 10) }
func (IdentityRef) isReference()     {}

type PORef struct {
	Number string
}

func (PORef) Kind() EntityKind { return EntityPurchaseOrder }
func (r PORef) Key() string    { return r.Number }
func (PORef) isReference()     {}

// Document - загруженный файл, привязанный к ТС, водителю/помощнику или заказу
type Document struct {
	ID              uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name            string     `json:"name" gorm:"type:varchar(255);not null"`
	Type            string     `json:"type" gorm:"type:varchar(50);not null;index"`
	ReferenceKind   EntityKind `json:"reference_kind" gorm:"column:reference_kind;type:varchar(20);not null;index:idx_documents_reference"`
	ReferenceID     string     `json:"reference_id" gorm:"column:reference_id;type:varchar(100);not null;index:idx_documents_reference"`
	FilePath        string     `json:"file_path" gorm:"type:varchar(500);not null"`
	FileSize        int64      `json:"file_size"`
	FileExtension   string     `json:"file_extension" gorm:"type:varchar(10)"`
	ContentType     string     `json:"content_type" gorm:"type:varchar(100)"`
	OwnerEmail      string     `json:"owner_email" gorm:"type:varchar(255);index"`
	OwnerCustomerID uint       `json:"owner_customer_id" gorm:"index"`
	IsActive        bool       `json:"is_active" gorm:"default:true;index"`
	ReplacedByID    *uint      `json:"replaced_by_id,omitempty" gorm:"column:replaced_by_id"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Reference восстанавливает типизированную ссылку по типу документа
func (d *Document) Reference() (Reference, error) {
	info, ok := DocumentTypes[d.Type]
	if !ok {
		return nil, fmt.Errorf("неизвестный тип документа: %s", d.Type)
	}
	if info.Kind != d.ReferenceKind {
		return nil, fmt.Errorf("тип документа %s не соответствует сущности %s", d.Type, d.ReferenceKind)
	}
	switch info.Kind {
	case EntityVehicle:
		id, err := strconv.ParseUint(d.ReferenceID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректная ссылка на ТС: %w", err)
		}
		return VehicleRef{ID: uint(id)}, nil
	case EntityIdentity:
		id, err := strconv.ParseUint(d.ReferenceID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректная ссылка на водителя: %w", err)
		}
		return IdentityRef{ID: uint(id), Role: info.Role}, nil
	default:
		return PORef{Number: d.ReferenceID}, nil
	}
}

// SetReference сохраняет типизированную ссылку в колонки таблицы
func (d *Document) SetReference(ref Reference) {
	d.ReferenceKind = ref.Kind()
	d.ReferenceID = ref.Key()
}
