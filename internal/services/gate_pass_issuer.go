package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/storage"
	"github.com/Arnav10090/Customer-web-portal/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IssueRequest - заявка клиента на пропуск
type IssueRequest struct {
	CustomerID       uint           `validate:"required"`
	CustomerEmail    string         `validate:"required,email"`
	CustomerPhone    string         `validate:"max=20"`
	VehiclePlate     string         `validate:"-"`
	Driver           IdentityInput  `validate:"-"`
	Helper           *IdentityInput `validate:"-"`
	PONumber         string         `validate:"required,max=100"`
	ZoneID           *uint          `validate:"-"`
	ExpReportingTime *time.Time     `validate:"-"`
	RFTagID          *uint          `validate:"-"`
	IPAddress        string         `validate:"-"`
}

// GatePassIssuer выполняет выдачу пропуска в одной транзакции:
// ТС, водитель, помощник, заказ, связка, заявка и QR-код
type GatePassIssuer struct {
	db         *gorm.DB
	files      *storage.FileStore
	identities *IdentityResolver
	refs       *ReferenceResolver
	chains     *TaggingChainBuilder
	audit      *AuditService
	email      EmailSender
	sms        SMSQueue
	cache      *LookupCache

	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

func NewGatePassIssuer(db *gorm.DB, files *storage.FileStore, audit *AuditService, email EmailSender, sms SMSQueue, cache *LookupCache, notifyTimeout time.Duration) *GatePassIssuer {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	if cache == nil {
		cache = NewLookupCache(nil, 0, false)
	}
	return &GatePassIssuer{
		db:            db,
		files:         files,
		identities:    NewIdentityResolver(),
		refs:          NewReferenceResolver(),
		chains:        NewTaggingChainBuilder(),
		audit:         audit,
		email:         email,
		sms:           sms,
		cache:         cache,
		notifyTimeout: notifyTimeout,
	}
}

// validateRequest проверяет и нормализует все поля до обращения к базе
func (s *GatePassIssuer) validateRequest(req IssueRequest) (IssueRequest, error) {
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.PONumber = utils.NormalizeKey(req.PONumber)

	if err := validateStruct("", req); err != nil {
		return req, err
	}

	plate, err := NormalizePlate(req.VehiclePlate)
	if err != nil {
		return req, err
	}
	req.VehiclePlate = plate

	req.Driver.Role = models.RoleDriver
	if req.Driver, err = req.Driver.Normalize("driver."); err != nil {
		return req, err
	}

	if req.Helper != nil {
		helper := *req.Helper
		helper.Role = models.RoleHelper
		if helper, err = helper.Normalize("helper."); err != nil {
			return req, err
		}
		if helper.Phone == req.Driver.Phone {
			return req, apperrors.Validation("Телефон помощника совпадает с телефоном водителя")
		}
		req.Helper = &helper
	}
	return req, nil
}

type issued struct {
	submission *models.GateEntrySubmission
	vehicle    *models.Vehicle
	driver     *models.Identity
	helper     *models.Identity
}

// Issue выдает пропуск. После коммита письмо и SMS отправляются в фоне;
// их ошибки попадают в журнал аудита и не влияют на результат
func (s *GatePassIssuer) Issue(ctx context.Context, req IssueRequest) (*models.GateEntrySubmission, error) {
	started := time.Now()

	req, err := s.validateRequest(req)
	if err != nil {
		trackIssue(string(apperrors.KindOf(err)), started)
		return nil, err
	}

	var out issued
	var qrFile string

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner := req.CustomerID

		vehicle, _, err := s.refs.ResolveVehicle(ctx, tx, req.VehiclePlate, &owner)
		if err != nil {
			return err
		}

		driver, _, err := s.identities.Resolve(ctx, tx, req.Driver)
		if err != nil {
			return err
		}

		var helper *models.Identity
		if req.Helper != nil {
			if helper, _, err = s.identities.Resolve(ctx, tx, *req.Helper); err != nil {
				return err
			}
		}

		po, _, err := s.refs.ResolvePO(ctx, tx, POInput{
			Number:           req.PONumber,
			OwnerID:          owner,
			ZoneID:           req.ZoneID,
			ExpReportingTime: req.ExpReportingTime,
		})
		if err != nil {
			return err
		}

		poTagging, err := s.chains.BuildChain(ctx, tx, ChainInput{
			Vehicle: vehicle,
			Driver:  driver,
			Helper:  helper,
			PO:      po,
			RFTagID: req.RFTagID,
		})
		if err != nil {
			return err
		}

		submission := &models.GateEntrySubmission{
			CustomerUserID:           owner,
			CustomerEmail:            req.CustomerEmail,
			CustomerPhone:            req.CustomerPhone,
			VehicleID:                vehicle.ID,
			DriverID:                 driver.ID,
			PODriverVehicleTaggingID: poTagging.ID,
			Status:                   models.SubmissionStatusPending,
		}
		if helper != nil {
			helperID := helper.ID
			submission.HelperID = &helperID
		}
		if err := tx.Omit(clause.Associations).Create(submission).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось создать заявку", err)
		}

		hash, err := PayloadHash(poTagging.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось вычислить хэш QR", err)
		}

		png, err := GenerateQRCode(QRPayload{ID: poTagging.ID})
		if err != nil {
			return apperrors.Storage("Не удалось сгенерировать QR-код", err)
		}

		path, err := s.saveQRCode(poTagging.ID, png)
		if err != nil {
			return apperrors.Storage("Не удалось сохранить QR-код", err)
		}
		qrFile = path

		err = tx.Model(submission).Updates(map[string]interface{}{
			"qr_payload_hash": hash,
			"qr_code_image":   path,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.New(apperrors.KindInternal, "Пропуск с таким QR-кодом уже существует")
		}
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось сохранить QR-код заявки", err)
		}
		submission.QRPayloadHash = &hash
		submission.QRCodeImage = path

		err = s.audit.Record(ctx, tx, &models.AuditLog{
			SubmissionID: &submission.ID,
			Action:       models.AuditSubmissionCreated,
			Description:  fmt.Sprintf("Создана заявка на въезд для ТС %s", vehicle.RegistrationNo),
			UserEmail:    req.CustomerEmail,
			IPAddress:    req.IPAddress,
		})
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "не удалось записать журнал аудита", err)
		}

		out = issued{submission: submission, vehicle: vehicle, driver: driver, helper: helper}
		return nil
	})
	if err != nil {
		if qrFile != "" {
			if rmErr := s.files.Remove(qrFile); rmErr != nil {
				log.Printf("Не удалось удалить QR-код %s после отката: %v", qrFile, rmErr)
			}
		}
		if apperrors.KindOf(err) == apperrors.KindInternal {
			log.Printf("Ошибка выдачи пропуска для %s: %v", req.VehiclePlate, err)
		}
		trackIssue(string(apperrors.KindOf(err)), started)
		return nil, err
	}
	trackIssue("success", started)

	if err := s.cache.Invalidate(ctx, s.cache.VehicleLookupKey(req.CustomerID, req.VehiclePlate)); err != nil {
		log.Printf("Не удалось сбросить кэш ТС %s: %v", req.VehiclePlate, err)
	}

	submission := out.submission
	submission.Vehicle = out.vehicle
	submission.Driver = out.driver
	submission.Helper = out.helper

	s.notifyAsync(out)
	return submission, nil
}

// saveQRCode пишет PNG. Файл с тем же id может остаться только от аварийно прерванной попытки
func (s *GatePassIssuer) saveQRCode(id uint, png []byte) (string, error) {
	rel := qrCodePath(id)
	path, err := s.files.Save(rel, png)
	if errors.Is(err, storage.ErrExists) {
		log.Printf("Найден устаревший QR-код %s, перезаписываем", rel)
		if err := s.files.Remove(rel); err != nil {
			return "", err
		}
		return s.files.Save(rel, png)
	}
	return path, err
}

// Wait ждет завершения фоновых уведомлений
func (s *GatePassIssuer) Wait() {
	s.wg.Wait()
}

func (s *GatePassIssuer) notifyAsync(n issued) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Паника при отправке уведомлений по заявке %d: %v", n.submission.ID, r)
			}
		}()

		s.sendEmail(n)
		s.sendSMS(n)
	}()
}

func (s *GatePassIssuer) sendEmail(n issued) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	sub := n.submission
	entry := &models.AuditLog{SubmissionID: &sub.ID, UserEmail: sub.CustomerEmail}

	var err error
	if s.email == nil {
		err = ErrSMTPNotConfigured
	} else {
		err = s.email.Send(ctx, GatePassEmail{
			To:             sub.CustomerEmail,
			Subject:        fmt.Sprintf("Gate Entry QR Code - %s", n.vehicle.RegistrationNo),
			Body:           gatePassEmailBody(n),
			AttachmentPath: filepath.Join(s.files.Root(), filepath.FromSlash(sub.QRCodeImage)),
		})
	}

	if err != nil {
		log.Printf("Ошибка отправки письма по заявке %d: %v", sub.ID, err)
		NotificationsTotal.WithLabelValues("email", "failed").Inc()
		entry.Action = models.AuditEmailFailed
		entry.Description = fmt.Sprintf("Не удалось отправить письмо: %v", err)
	} else {
		NotificationsTotal.WithLabelValues("email", "sent").Inc()
		entry.Action = models.AuditEmailSent
		entry.Description = fmt.Sprintf("Письмо с QR-кодом отправлено на %s", sub.CustomerEmail)
	}
	s.audit.RecordBestEffort(ctx, entry)
}

func (s *GatePassIssuer) sendSMS(n issued) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	sub := n.submission
	entry := &models.AuditLog{SubmissionID: &sub.ID, UserEmail: sub.CustomerEmail}

	var err error
	switch {
	case s.sms == nil:
		err = ErrSMSQueueNotConfigured
	case sub.CustomerPhone == "":
		err = errors.New("не указан телефон клиента")
	default:
		err = s.sms.Enqueue(ctx, SMSJob{
			Phone:        sub.CustomerPhone,
			Message:      fmt.Sprintf("Gate Entry QR Code generated for vehicle %s. Check your email for details.", n.vehicle.RegistrationNo),
			SubmissionID: sub.ID,
		})
	}

	if err != nil {
		log.Printf("Ошибка постановки SMS по заявке %d: %v", sub.ID, err)
		NotificationsTotal.WithLabelValues("sms", "failed").Inc()
		entry.Action = models.AuditSMSFailed
		entry.Description = fmt.Sprintf("Не удалось поставить SMS в очередь: %v", err)
	} else {
		NotificationsTotal.WithLabelValues("sms", "queued").Inc()
		entry.Action = models.AuditSMSQueued
		entry.Description = fmt.Sprintf("SMS поставлено в очередь для %s", sub.CustomerPhone)
	}
	s.audit.RecordBestEffort(ctx, entry)
}

func gatePassEmailBody(n issued) string {
	var b strings.Builder
	b.WriteString("Dear Customer,\n\n")
	b.WriteString("Your gate entry QR code has been generated successfully.\n\n")
	fmt.Fprintf(&b, "Vehicle Number: %s\n", n.vehicle.RegistrationNo)
	fmt.Fprintf(&b, "Driver: %s (%s)\n", n.driver.Name, n.driver.Phone)
	if n.helper != nil {
		fmt.Fprintf(&b, "Helper: %s (%s)\n", n.helper.Name, n.helper.Phone)
	}
	b.WriteString("\nPlease present this QR code at the gate entrance.\n\n")
	b.WriteString("Best regards,\nGate Entry System\n")
	return b.String()
}
