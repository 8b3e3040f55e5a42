package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/storage"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"gorm.io/gorm"
)

const MaxDocumentSize = 5 << 20

var (
	allowedContentTypes = map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/jpg":       true,
		"image/png":       true,
	}
	allowedExtensions = map[string]bool{
		".pdf":  true,
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
	unsafeFolderChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// LinkRequest - загруженный файл и данные для поиска сущности-владельца.
// Заполняется только поле, соответствующее типу документа
type LinkRequest struct {
	DocumentType string
	FileName     string
	ContentType  string
	Data         []byte
	OwnerID      uint
	OwnerEmail   string

	VehiclePlate string
	PONumber     string
	Phone        string
}

type LinkResult struct {
	Document  *models.Document  `json:"document"`
	Replaced  []models.Document `json:"replaced,omitempty"`
	Reference models.Reference  `json:"-"`
}

// DocumentLinker сохраняет документы и привязывает их к ТС, водителю/помощнику или заказу
type DocumentLinker struct {
	db         *gorm.DB
	files      *storage.FileStore
	identities *IdentityResolver
	refs       *ReferenceResolver
	cache      *LookupCache
	now        func() time.Time
}

func NewDocumentLinker(db *gorm.DB, files *storage.FileStore, cache *LookupCache) *DocumentLinker {
	if cache == nil {
		cache = NewLookupCache(nil, 0, false)
	}
	return &DocumentLinker{
		db:         db,
		files:      files,
		identities: NewIdentityResolver(),
		refs:       NewReferenceResolver(),
		cache:      cache,
		now:        time.Now,
	}
}

// dropLookups сбрасывает автозаполнение клиента: замена документа одного типа
// может затронуть документ другого ТС или водителя
func (l *DocumentLinker) dropLookups(ctx context.Context, owner uint) {
	if err := l.cache.InvalidateMatching(ctx, l.cache.CustomerLookupPattern(owner)); err != nil {
		log.Printf("Не удалось сбросить кэш автозаполнения клиента %d: %v", owner, err)
	}
}

// validate проверяет файл и аргументы до любой записи на диск
func (l *DocumentLinker) validate(req *LinkRequest) (models.DocumentTypeInfo, error) {
	req.DocumentType = strings.ToLower(strings.TrimSpace(req.DocumentType))
	info, ok := models.DocumentTypes[req.DocumentType]
	if !ok {
		return info, apperrors.Validation(fmt.Sprintf("Неизвестный тип документа: %s", req.DocumentType))
	}

	if len(req.Data) == 0 {
		return info, apperrors.Validation("Файл пустой")
	}
	if len(req.Data) > MaxDocumentSize {
		return info, apperrors.Validation("Размер файла не должен превышать 5 МБ")
	}

	ct := strings.ToLower(strings.TrimSpace(req.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedContentTypes[ct] {
		return info, apperrors.Validation(fmt.Sprintf("Недопустимый тип файла: %s. Разрешены PDF, JPEG, PNG", req.ContentType))
	}
	req.ContentType = ct

	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedExtensions[ext] {
		return info, apperrors.Validation(fmt.Sprintf("Недопустимое расширение файла: %q", ext))
	}

	req.OwnerEmail = strings.TrimSpace(req.OwnerEmail)
	if req.OwnerID == 0 || req.OwnerEmail == "" {
		return info, apperrors.Validation("Не указан владелец документа")
	}

	switch info.Kind {
	case models.EntityVehicle:
		plate, err := NormalizePlate(req.VehiclePlate)
		if err != nil {
			return info, err
		}
		req.VehiclePlate = plate
	case models.EntityPurchaseOrder:
		req.PONumber = utils.NormalizeKey(req.PONumber)
		if req.PONumber == "" {
			return info, apperrors.Validation("Необходимо указать номер PO")
		}
	case models.EntityIdentity:
		req.Phone = utils.NormalizePhone(req.Phone)
		if !utils.IsValidPhone(req.Phone) {
			return info, apperrors.Validation("телефон должен быть в формате +91XXXXXXXXXX")
		}
	}
	return info, nil
}

// resolveReference находит сущность-владельца. Водители и помощники должны уже существовать
func (l *DocumentLinker) resolveReference(ctx context.Context, tx *gorm.DB, info models.DocumentTypeInfo, req LinkRequest) (models.Reference, error) {
	switch info.Kind {
	case models.EntityVehicle:
		owner := req.OwnerID
		vehicle, _, err := l.refs.ResolveVehicle(ctx, tx, req.VehiclePlate, &owner)
		if err != nil {
			return nil, err
		}
		return models.VehicleRef{ID: vehicle.ID}, nil
	case models.EntityPurchaseOrder:
		po, _, err := l.refs.ResolvePO(ctx, tx, POInput{Number: req.PONumber, OwnerID: req.OwnerID, SkipOwnerBackfill: true})
		if err != nil {
			return nil, err
		}
		return models.PORef{Number: po.ID}, nil
	case models.EntityIdentity:
		identity, err := l.identities.FindByPhoneAndRole(ctx, tx, req.Phone, info.Role)
		if err != nil {
			return nil, err
		}
		return models.IdentityRef{ID: identity.ID, Role: identity.Role}, nil
	}
	return nil, apperrors.New(apperrors.KindInternal, "неизвестный вид сущности")
}

func ownerFolder(email string) string {
	return unsafeFolderChars.ReplaceAllString(strings.ReplaceAll(strings.ToLower(email), "@", "_at_"), "_")
}

func (l *DocumentLinker) documentPath(docType, email, ext string, at time.Time) string {
	stamp := fmt.Sprintf("%s_%06d", at.Format("20060102_150405"), at.Nanosecond()/1000)
	return fmt.Sprintf("documents/%s/%s/%s_%s%s", ownerFolder(email), docType, docType, stamp, ext)
}

// saveFile пишет файл по пути с отметкой времени; совпадение пути в ту же микросекунду сдвигает отметку
func (l *DocumentLinker) saveFile(req LinkRequest, ext string) (string, error) {
	at := l.now()
	for i := 0; i < 5; i++ {
		path, err := l.files.Save(l.documentPath(req.DocumentType, req.OwnerEmail, ext, at), req.Data)
		if !errors.Is(err, storage.ErrExists) {
			return path, err
		}
		at = at.Add(time.Microsecond)
	}
	return "", storage.ErrExists
}

// Link проверяет файл, находит владельца, сохраняет файл и строку документа.
// Предыдущий активный документ того же типа у клиента помечается замененным
func (l *DocumentLinker) Link(ctx context.Context, req LinkRequest) (*LinkResult, error) {
	info, err := l.validate(&req)
	if err != nil {
		DocumentsLinkedTotal.WithLabelValues(string(info.Kind), string(apperrors.KindOf(err))).Inc()
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(req.FileName))

	result := &LinkResult{}
	var written string

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := l.resolveReference(ctx, tx, info, req)
		if err != nil {
			return err
		}
		result.Reference = ref

		path, err := l.saveFile(req, ext)
		if err != nil {
			return apperrors.Storage("Не удалось сохранить файл", err)
		}
		written = path

		doc := &models.Document{
			Name:            filepath.Base(req.FileName),
			Type:            req.DocumentType,
			FilePath:        path,
			FileSize:        int64(len(req.Data)),
			FileExtension:   ext,
			ContentType:     req.ContentType,
			OwnerEmail:      req.OwnerEmail,
			OwnerCustomerID: req.OwnerID,
			IsActive:        true,
		}
		doc.SetReference(ref)
		if err := tx.Create(doc).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось сохранить документ", err)
		}

		var previous []models.Document
		err = tx.Where("owner_email = ? AND type = ? AND is_active = ? AND id <> ?", req.OwnerEmail, req.DocumentType, true, doc.ID).
			Find(&previous).Error
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "ошибка поиска предыдущих документов", err)
		}
		if len(previous) > 0 {
			ids := make([]uint, 0, len(previous))
			for _, p := range previous {
				ids = append(ids, p.ID)
			}
			err = tx.Model(&models.Document{}).Where("id IN ?", ids).
				Updates(map[string]interface{}{"is_active": false, "replaced_by_id": doc.ID}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.KindInternal, "не удалось пометить документы замененными", err)
			}
			for i := range previous {
				previous[i].IsActive = false
				previous[i].ReplacedByID = &doc.ID
			}
		}

		result.Document = doc
		result.Replaced = previous
		return nil
	})
	if err != nil {
		if written != "" {
			if rmErr := l.files.Remove(written); rmErr != nil {
				log.Printf("Не удалось удалить файл %s после ошибки БД: %v", written, rmErr)
			}
		}
		DocumentsLinkedTotal.WithLabelValues(string(info.Kind), string(apperrors.KindOf(err))).Inc()
		return nil, err
	}

	l.dropLookups(ctx, req.OwnerID)
	DocumentsLinkedTotal.WithLabelValues(string(info.Kind), "success").Inc()
	return result, nil
}

func (l *DocumentLinker) find(ctx context.Context, id, owner uint) (*models.Document, error) {
	var doc models.Document
	err := l.db.WithContext(ctx).Where("id = ? AND owner_customer_id = ?", id, owner).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ReferenceNotFound("Документ не найден")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка поиска документа", err)
	}
	return &doc, nil
}

// Get возвращает документ клиента, в том числе неактивный
func (l *DocumentLinker) Get(ctx context.Context, id, owner uint) (*models.Document, error) {
	return l.find(ctx, id, owner)
}

// Remove деактивирует документ или, при hardDelete, удаляет строку и файл
func (l *DocumentLinker) Remove(ctx context.Context, id, owner uint, hardDelete bool) error {
	doc, err := l.find(ctx, id, owner)
	if err != nil {
		return err
	}

	if !hardDelete {
		err := l.db.WithContext(ctx).Model(doc).Update("is_active", false).Error
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось деактивировать документ", err)
		}
		l.dropLookups(ctx, owner)
		return nil
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Document{}).Where("replaced_by_id = ?", doc.ID).
			Update("replaced_by_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(doc).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "не удалось удалить документ", err)
	}
	l.dropLookups(ctx, owner)

	if err := l.files.Remove(doc.FilePath); err != nil {
		log.Printf("Документ %d удален, но файл %s остался: %v", doc.ID, doc.FilePath, err)
	}
	return nil
}

// Open возвращает активный документ и поток для скачивания. Поток закрывает вызывающий
func (l *DocumentLinker) Open(ctx context.Context, id, owner uint) (*models.Document, io.ReadCloser, error) {
	doc, err := l.find(ctx, id, owner)
	if err != nil {
		return nil, nil, err
	}
	if !doc.IsActive {
		return nil, nil, apperrors.ReferenceNotFound("Документ неактивен")
	}

	rc, err := l.files.Open(doc.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, apperrors.ReferenceNotFound("Файл документа не найден")
	}
	if err != nil {
		return nil, nil, apperrors.Storage("Не удалось открыть файл документа", err)
	}
	return doc, rc, nil
}

// List возвращает документы клиента, по умолчанию только активные
func (l *DocumentLinker) List(ctx context.Context, owner uint, docType string, includeInactive bool) ([]models.Document, error) {
	q := l.db.WithContext(ctx).Where("owner_customer_id = ?", owner)
	if docType != "" {
		q = q.Where("type = ?", strings.ToLower(docType))
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var docs []models.Document
	if err := q.Order("created_at DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения документов", err)
	}
	return docs, nil
}

// ActiveFor возвращает активные документы, привязанные к сущности
func (l *DocumentLinker) ActiveFor(ctx context.Context, ref models.Reference) ([]models.Document, error) {
	var docs []models.Document
	err := l.db.WithContext(ctx).
		Where("reference_kind = ? AND reference_id = ? AND is_active = ?", ref.Kind(), ref.Key(), true).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ошибка получения документов", err)
	}
	return docs, nil
}
