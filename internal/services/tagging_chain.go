package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChainInput - уже разрешенные сущности для новой связки
type ChainInput struct {
	Vehicle *models.Vehicle
	Driver  *models.Identity
	Helper  *models.Identity
	PO      *models.PurchaseOrder
	RFTagID *uint
}

// TaggingChainBuilder создает цепочку DriverVehicleTagging -> PODriverVehicleTagging.
// Каждый вызов добавляет новые записи; существующие связки не изменяются
type TaggingChainBuilder struct{}

func NewTaggingChainBuilder() *TaggingChainBuilder {
	return &TaggingChainBuilder{}
}

func (b *TaggingChainBuilder) BuildChain(ctx context.Context, tx *gorm.DB, in ChainInput) (*models.PODriverVehicleTagging, error) {
	if err := b.check(in); err != nil {
		return nil, err
	}
	db := tx.WithContext(ctx)

	if in.RFTagID != nil {
		var tag models.RFTag
		err := db.First(&tag, *in.RFTagID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation(fmt.Sprintf("RF-метка %d не найдена", *in.RFTagID))
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска RF-метки", err)
		}
		if !tag.IsActive {
			return nil, apperrors.Validation(fmt.Sprintf("RF-метка %d неактивна", *in.RFTagID))
		}
	}

	tagging := &models.DriverVehicleTagging{
		DriverID:   in.Driver.ID,
		VehicleID:  in.Vehicle.ID,
		IsVerified: false,
	}
	if in.Helper != nil {
		helperID := in.Helper.ID
		tagging.HelperID = &helperID
	}
	if err := db.Omit(clause.Associations).Create(tagging).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "не удалось создать связку водитель-ТС", err)
	}

	poTagging := &models.PODriverVehicleTagging{
		POID:                   in.PO.ID,
		DriverVehicleTaggingID: tagging.ID,
		RFTagID:                in.RFTagID,
	}
	if err := db.Omit(clause.Associations).Create(poTagging).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "не удалось привязать связку к заказу", err)
	}

	poTagging.DriverVehicleTagging = *tagging
	return poTagging, nil
}

func (b *TaggingChainBuilder) check(in ChainInput) error {
	if in.Vehicle == nil || in.Driver == nil || in.PO == nil {
		return apperrors.Validation("Для связки нужны ТС, водитель и заказ")
	}
	if in.Driver.Role != models.RoleDriver {
		return apperrors.Validation(fmt.Sprintf("%s зарегистрирован как %s, а не как водитель", in.Driver.Name, in.Driver.Role))
	}
	if in.Driver.IsBlacklisted {
		return apperrors.Validation(fmt.Sprintf("Водитель %s в черном списке", in.Driver.Name))
	}
	if in.Helper == nil {
		return nil
	}
	if in.Helper.ID == in.Driver.ID {
		return apperrors.Validation("Помощник не может совпадать с водителем")
	}
	if in.Helper.Role != models.RoleHelper {
		return apperrors.Validation(fmt.Sprintf("%s зарегистрирован как %s, а не как помощник", in.Helper.Name, in.Helper.Role))
	}
	if in.Helper.IsBlacklisted {
		return apperrors.Validation(fmt.Sprintf("Помощник %s в черном списке", in.Helper.Name))
	}
	return nil
}
