package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"gorm.io/gorm"
)

// IdentityInput - данные водителя или помощника из формы клиента
type IdentityInput struct {
	Name       string              `json:"name" validate:"required,max=100"`
	Phone      string              `json:"phone_no" validate:"required,in_phone"`
	Role       models.IdentityRole `json:"type" validate:"required,identity_role"`
	NationalID string              `json:"uid" validate:"omitempty,aadhar"`
	Language   string              `json:"language" validate:"lang"`
}

// Normalize приводит поля к каноническому виду и проверяет их
func (in IdentityInput) Normalize(prefix string) (IdentityInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = utils.NormalizePhone(in.Phone)
	in.NationalID = utils.NormalizeNationalID(in.NationalID)
	in.Language = strings.ToLower(strings.TrimSpace(in.Language))
	if in.Language == "" {
		in.Language = models.DefaultLanguage
	}
	if err := validateStruct(prefix, in); err != nil {
		return in, err
	}
	return in, nil
}

// IdentityResolver сопоставляет водителей и помощников с существующими записями.
// Никогда не объединяет разные личности: любое расхождение возвращается как конфликт
type IdentityResolver struct{}

func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{}
}

// Resolve находит или создает личность. Второе значение - была ли запись создана
func (r *IdentityResolver) Resolve(ctx context.Context, tx *gorm.DB, in IdentityInput) (*models.Identity, bool, error) {
	in, err := in.Normalize("")
	if err != nil {
		return nil, false, err
	}
	db := tx.WithContext(ctx)

	identity, err := r.match(db, in)
	if err != nil {
		return nil, false, err
	}
	if identity != nil {
		return identity, false, nil
	}

	if in.NationalID == "" {
		return nil, false, apperrors.MissingIdentifier("Для регистрации нового водителя/помощника требуется номер Aadhar")
	}

	nationalID := in.NationalID
	identity = &models.Identity{
		NationalID:    &nationalID,
		Name:          in.Name,
		Phone:         in.Phone,
		Role:          in.Role,
		Language:      in.Language,
		IsBlacklisted: false,
		Rating:        nil,
	}

	// Вставка в точке сохранения, чтобы после нарушения уникальности транзакция осталась живой
	err = db.Transaction(func(sp *gorm.DB) error {
		return sp.Create(identity).Error
	})
	if err == nil {
		return identity, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, apperrors.Wrap(apperrors.KindInternal, "не удалось создать водителя/помощника", err)
	}

	// Параллельный запрос успел создать запись: сравниваем с ней повторно
	log.Printf("Гонка при создании личности с телефоном %s, повторная проверка", in.Phone)
	identity, err = r.match(db, in)
	if err != nil {
		return nil, false, err
	}
	if identity == nil {
		return nil, false, apperrors.IdentityConflict("Телефон или номер Aadhar уже зарегистрированы")
	}
	return identity, false, nil
}

// match применяет правила сопоставления. (nil, nil) означает, что совпадений нет
func (r *IdentityResolver) match(db *gorm.DB, in IdentityInput) (*models.Identity, error) {
	if in.NationalID != "" {
		var byID models.Identity
		err := db.Where("national_id = ?", in.NationalID).First(&byID).Error
		switch {
		case err == nil:
			if byID.Phone != in.Phone {
				return nil, apperrors.IdentityConflict("Номер Aadhar уже зарегистрирован с другим номером телефона")
			}
			if !strings.EqualFold(byID.Name, in.Name) {
				return nil, apperrors.IdentityConflict(fmt.Sprintf("Номер Aadhar уже зарегистрирован на имя '%s'", byID.Name))
			}
			if err := checkRole(&byID, in.Role); err != nil {
				return nil, err
			}
			if err := r.touch(db, &byID, in); err != nil {
				return nil, err
			}
			return &byID, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска по номеру Aadhar", err)
		}
	}

	var byPhone models.Identity
	err := db.Where("phone = ?", in.Phone).First(&byPhone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска по телефону", err)
	}
	if !strings.EqualFold(byPhone.Name, in.Name) {
		return nil, apperrors.IdentityConflict(fmt.Sprintf("Телефон уже зарегистрирован на другого человека ('%s')", byPhone.Name))
	}
	if in.NationalID != "" && byPhone.NationalID != nil && *byPhone.NationalID != in.NationalID {
		return nil, apperrors.IdentityConflict("Телефон уже зарегистрирован с другим номером Aadhar")
	}
	if err := checkRole(&byPhone, in.Role); err != nil {
		return nil, err
	}
	if err := r.touch(db, &byPhone, in); err != nil {
		return nil, err
	}
	return &byPhone, nil
}

// checkRole не дает использовать помощника как водителя и наоборот
func checkRole(identity *models.Identity, role models.IdentityRole) error {
	if identity.Role != role {
		return apperrors.IdentityConflict(fmt.Sprintf("%s уже зарегистрирован с ролью %s", identity.Name, identity.Role))
	}
	return nil
}

// touch обновляет язык и, для старых записей без Aadhar, дописывает номер
func (r *IdentityResolver) touch(db *gorm.DB, identity *models.Identity, in IdentityInput) error {
	updates := map[string]interface{}{}
	if identity.Language != in.Language {
		updates["language"] = in.Language
	}
	if identity.NationalID == nil && in.NationalID != "" {
		updates["national_id"] = in.NationalID
	}
	if len(updates) == 0 {
		return nil
	}

	err := db.Transaction(func(sp *gorm.DB) error {
		return sp.Model(identity).Updates(updates).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.IdentityConflict("Номер Aadhar уже зарегистрирован за другим человеком")
	}
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "не удалось обновить водителя/помощника", err)
	}

	identity.Language = in.Language
	if identity.NationalID == nil && in.NationalID != "" {
		nationalID := in.NationalID
		identity.NationalID = &nationalID
	}
	return nil
}

// FindByPhoneAndRole ищет существующую личность; документы не создают новых
func (r *IdentityResolver) FindByPhoneAndRole(ctx context.Context, tx *gorm.DB, phone string, role models.IdentityRole) (*models.Identity, error) {
	phone = utils.NormalizePhone(phone)
	if !utils.IsValidPhone(phone) {
		return nil, apperrors.Validation("телефон должен быть в формате +91XXXXXXXXXX")
	}

	var identity models.Identity
	err := tx.WithContext(ctx).Where("phone = ? AND role = ?", phone, role).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ReferenceNotFound(fmt.Sprintf("%s с телефоном %s не найден", role, phone))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска водителя/помощника", err)
	}
	return &identity, nil
}
