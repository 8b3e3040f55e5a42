package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"gorm.io/gorm"
)

// POInput - параметры заказа. Зона и ожидаемое время применяются только при создании
type POInput struct {
	Number           string
	OwnerID          uint
	ZoneID           *uint
	ExpReportingTime *time.Time

	// Не назначать владельца существующему заказу без владельца (загрузка документов)
	SkipOwnerBackfill bool
}

// ReferenceResolver выполняет get-or-create для ТС и заказов по натуральным ключам
type ReferenceResolver struct{}

func NewReferenceResolver() *ReferenceResolver {
	return &ReferenceResolver{}
}

// NormalizePlate нормализует госномер и проверяет допустимые символы
func NormalizePlate(plate string) (string, error) {
	p := utils.NormalizeKey(plate)
	if p == "" {
		return "", apperrors.Validation("Необходимо указать госномер ТС")
	}
	if !utils.IsValidPlate(p) {
		return "", apperrors.Validation("госномер может содержать только латинские буквы, цифры, пробелы и дефисы")
	}
	return p, nil
}

// ResolveVehicle возвращает ТС по номеру, создавая его при необходимости.
// Владелец дописывается, если его не было; ТС может использоваться несколькими клиентами
func (r *ReferenceResolver) ResolveVehicle(ctx context.Context, tx *gorm.DB, plate string, owner *uint) (*models.Vehicle, bool, error) {
	plate, err := NormalizePlate(plate)
	if err != nil {
		return nil, false, err
	}
	db := tx.WithContext(ctx)

	vehicle, err := r.findVehicle(db, plate, owner)
	if err != nil || vehicle != nil {
		return vehicle, false, err
	}

	vehicle = &models.Vehicle{RegistrationNo: plate, OwnerCustomerID: owner}
	err = db.Transaction(func(sp *gorm.DB) error {
		return sp.Create(vehicle).Error
	})
	if err == nil {
		return vehicle, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, apperrors.Wrap(apperrors.KindInternal, "не удалось создать ТС", err)
	}

	log.Printf("Гонка при создании ТС %s, повторная выборка", plate)
	vehicle, err = r.findVehicle(db, plate, owner)
	if err != nil {
		return nil, false, err
	}
	if vehicle == nil {
		return nil, false, apperrors.New(apperrors.KindInternal, "ТС не найдено после конфликта уникальности")
	}
	return vehicle, false, nil
}

func (r *ReferenceResolver) findVehicle(db *gorm.DB, plate string, owner *uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := db.Where("registration_no = ?", plate).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска ТС", err)
	}

	if owner != nil && vehicle.OwnerCustomerID == nil {
		res := db.Model(&models.Vehicle{}).
			Where("id = ? AND owner_customer_id IS NULL", vehicle.ID).
			Update("owner_customer_id", *owner)
		if res.Error != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "не удалось назначить владельца ТС", res.Error)
		}
		if res.RowsAffected == 1 {
			o := *owner
			vehicle.OwnerCustomerID = &o
		}
	}
	return &vehicle, nil
}

// ResolvePO возвращает заказ по номеру, создавая его с владельцем-клиентом.
// Заказ другого клиента не переназначается: это OwnershipConflict
func (r *ReferenceResolver) ResolvePO(ctx context.Context, tx *gorm.DB, in POInput) (*models.PurchaseOrder, bool, error) {
	number := utils.NormalizeKey(in.Number)
	if number == "" {
		return nil, false, apperrors.Validation("Необходимо указать номер PO")
	}
	if in.OwnerID == 0 {
		return nil, false, apperrors.Validation("Не указан владелец заказа")
	}
	db := tx.WithContext(ctx)

	po, err := r.findPO(db, number, in.OwnerID, !in.SkipOwnerBackfill)
	if err != nil || po != nil {
		return po, false, err
	}

	if in.ZoneID != nil {
		var zone models.Zone
		if err := db.First(&zone, *in.ZoneID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, apperrors.Validation(fmt.Sprintf("Зона %d не найдена", *in.ZoneID))
			}
			return nil, false, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска зоны", err)
		}
	}

	owner := in.OwnerID
	po = &models.PurchaseOrder{
		ID:               number,
		ZoneID:           in.ZoneID,
		CustomerUserID:   &owner,
		ExpReportingTime: in.ExpReportingTime,
	}
	err = db.Transaction(func(sp *gorm.DB) error {
		return sp.Create(po).Error
	})
	if err == nil {
		return po, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, apperrors.Wrap(apperrors.KindInternal, "не удалось создать заказ", err)
	}

	log.Printf("Гонка при создании PO %s, повторная проверка владельца", number)
	po, err = r.findPO(db, number, in.OwnerID, !in.SkipOwnerBackfill)
	if err != nil {
		return nil, false, err
	}
	if po == nil {
		return nil, false, apperrors.New(apperrors.KindInternal, "заказ не найден после конфликта уникальности")
	}
	return po, false, nil
}

func (r *ReferenceResolver) findPO(db *gorm.DB, number string, owner uint, backfill bool) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := db.Where("id = ?", number).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска заказа", err)
	}

	if po.CustomerUserID == nil && backfill {
		// Условное обновление: из двух параллельных клиентов владельцем станет только один
		res := db.Model(&models.PurchaseOrder{}).
			Where("id = ? AND customer_user_id IS NULL", number).
			Update("customer_user_id", owner)
		if res.Error != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "не удалось назначить владельца заказа", res.Error)
		}
		if res.RowsAffected == 0 {
			if err := db.Where("id = ?", number).First(&po).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска заказа", err)
			}
		} else {
			o := owner
			po.CustomerUserID = &o
		}
	}

	if po.CustomerUserID != nil && *po.CustomerUserID != owner {
		return nil, apperrors.OwnershipConflict(fmt.Sprintf("Заказ %s принадлежит другому клиенту", number))
	}
	return &po, nil
}
