package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"

	"gorm.io/gorm"
)

// LookupService - чтение справочников клиента: ТС, водители, заказы
type LookupService struct {
	db    *gorm.DB
	cache *LookupCache
	docs  *DocumentLinker
}

func NewLookupService(db *gorm.DB, cache *LookupCache, docs *DocumentLinker) *LookupService {
	if cache == nil {
		cache = NewLookupCache(nil, 0, false)
	}
	return &LookupService{db: db, cache: cache, docs: docs}
}

// LookupVehicle собирает данные для автозаполнения формы: ТС, водитель и помощник
// из последней заявки клиента по этому ТС и их активные документы
func (s *LookupService) LookupVehicle(ctx context.Context, customerID uint, plate string) (*models.VehicleLookupResponse, error) {
	plate, err := NormalizePlate(plate)
	if err != nil {
		return nil, err
	}

	key := s.cache.VehicleLookupKey(customerID, plate)
	var cached models.VehicleLookupResponse
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Printf("Ошибка чтения кэша %s: %v", key, err)
	} else if found {
		return &cached, nil
	}

	db := s.db.WithContext(ctx)

	var vehicle models.Vehicle
	err = db.Where("registration_no = ?", plate).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ReferenceNotFound(fmt.Sprintf("ТС %s не найдено", plate))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска ТС", err)
	}

	resp := &models.VehicleLookupResponse{Vehicle: vehicle, Documents: []models.Document{}}

	var latest models.GateEntrySubmission
	err = db.Preload("Driver").Preload("Helper").
		Where("vehicle_id = ? AND customer_user_id = ?", vehicle.ID, customerID).
		Order("created_at DESC, id DESC").
		First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска последней заявки", err)
	}
	if err == nil {
		resp.Driver = latest.Driver
		resp.Helper = latest.Helper
	}

	refs := []models.Reference{models.VehicleRef{ID: vehicle.ID}}
	if resp.Driver != nil {
		refs = append(refs, models.IdentityRef{ID: resp.Driver.ID, Role: resp.Driver.Role})
	}
	if resp.Helper != nil {
		refs = append(refs, models.IdentityRef{ID: resp.Helper.ID, Role: resp.Helper.Role})
	}
	for _, ref := range refs {
		docs, err := s.docs.ActiveFor(ctx, ref)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if d.OwnerCustomerID == customerID {
				resp.Documents = append(resp.Documents, d)
			}
		}
	}

	if err := s.cache.Set(ctx, key, resp); err != nil {
		log.Printf("Ошибка записи кэша %s: %v", key, err)
	}
	return resp, nil
}

// ListVehicles возвращает ТС, принадлежащие клиенту
func (s *LookupService) ListVehicles(ctx context.Context, customerID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.WithContext(ctx).
		Where("owner_customer_id = ?", customerID).
		Order("registration_no ASC").
		Find(&vehicles).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения списка ТС", err)
	}
	return vehicles, nil
}

// DeleteVehicle удаляет ТС без истории пропусков (операция администратора)
func (s *LookupService) DeleteVehicle(ctx context.Context, plate string) error {
	plate, err := NormalizePlate(plate)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle models.Vehicle
		if err := tx.Where("registration_no = ?", plate).First(&vehicle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ReferenceNotFound(fmt.Sprintf("ТС %s не найдено", plate))
			}
			return apperrors.Wrap(apperrors.KindInternal, "ошибка поиска ТС", err)
		}
		var used int64
		if err := tx.Model(&models.DriverVehicleTagging{}).Where("vehicle_id = ?", vehicle.ID).Count(&used).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "ошибка проверки связок ТС", err)
		}
		if used > 0 {
			return apperrors.Validation("ТС используется в выданных пропусках и не может быть удалено")
		}
		if err := tx.Delete(&vehicle).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось удалить ТС", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.cache.InvalidateMatching(ctx, s.cache.PlateLookupPattern(plate)); err != nil {
		log.Printf("Не удалось сбросить кэш ТС %s: %v", plate, err)
	}
	return nil
}

// ListIdentities возвращает водителей и помощников, при необходимости по роли
func (s *LookupService) ListIdentities(ctx context.Context, role models.IdentityRole) ([]models.Identity, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if role != "" {
		if !models.IsValidRole(role) {
			return nil, apperrors.Validation("роль должна быть Driver или Helper")
		}
		q = q.Where("role = ?", role)
	}
	var identities []models.Identity
	if err := q.Find(&identities).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения водителей", err)
	}
	return identities, nil
}

type VehicleCrew struct {
	Drivers []models.Identity `json:"drivers"`
	Helpers []models.Identity `json:"helpers"`
}

// IdentitiesByVehicle возвращает всех водителей и помощников из связок ТС, новые первыми
func (s *LookupService) IdentitiesByVehicle(ctx context.Context, vehicleID uint) (*VehicleCrew, error) {
	var taggings []models.DriverVehicleTagging
	err := s.db.WithContext(ctx).
		Preload("Driver").Preload("Helper").
		Where("vehicle_id = ?", vehicleID).
		Order("created_at DESC, id DESC").
		Find(&taggings).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения связок ТС", err)
	}

	crew := &VehicleCrew{Drivers: []models.Identity{}, Helpers: []models.Identity{}}
	seen := map[uint]bool{}
	for _, t := range taggings {
		if t.Driver.ID != 0 && !seen[t.Driver.ID] {
			seen[t.Driver.ID] = true
			crew.Drivers = append(crew.Drivers, t.Driver)
		}
		if t.Helper != nil && !seen[t.Helper.ID] {
			seen[t.Helper.ID] = true
			crew.Helpers = append(crew.Helpers, *t.Helper)
		}
	}
	return crew, nil
}

// DeleteIdentity удаляет водителя/помощника без связок (операция администратора)
func (s *LookupService) DeleteIdentity(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&identity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ReferenceNotFound("Водитель/помощник не найден")
			}
			return apperrors.Wrap(apperrors.KindInternal, "ошибка поиска водителя", err)
		}
		var used int64
		if err := tx.Model(&models.DriverVehicleTagging{}).
			Where("driver_id = ? OR helper_id = ?", id, id).Count(&used).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "ошибка проверки связок", err)
		}
		if used > 0 {
			return apperrors.Validation("Водитель/помощник используется в выданных пропусках и не может быть удален")
		}
		if err := tx.Delete(&identity).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось удалить водителя", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// ListPurchaseOrders возвращает заказы клиента
func (s *LookupService) ListPurchaseOrders(ctx context.Context, customerID uint) ([]models.PurchaseOrder, error) {
	var pos []models.PurchaseOrder
	err := s.db.WithContext(ctx).Preload("Zone").
		Where("customer_user_id = ?", customerID).
		Order("created_at DESC").
		Find(&pos).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения заказов", err)
	}
	return pos, nil
}
