package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// SubmissionRequest - форма пропуска. Принимается как JSON или multipart;
// в multipart-форме файлы передаются полями с именами типов документов
type SubmissionRequest struct {
	CustomerEmail    string     `json:"customer_email" form:"customer_email"`
	CustomerPhone    string     `json:"customer_phone" form:"customer_phone"`
	VehicleNumber    string     `json:"vehicle_number" form:"vehicle_number"`
	DriverName       string     `json:"driver_name" form:"driver_name"`
	DriverPhone      string     `json:"driver_phone" form:"driver_phone"`
	DriverUID        string     `json:"driver_uid" form:"driver_uid"`
	DriverLanguage   string     `json:"driver_language" form:"driver_language"`
	HelperName       string     `json:"helper_name" form:"helper_name"`
	HelperPhone      string     `json:"helper_phone" form:"helper_phone"`
	HelperUID        string     `json:"helper_uid" form:"helper_uid"`
	HelperLanguage   string     `json:"helper_language" form:"helper_language"`
	PONumber         string     `json:"po_number" form:"po_number"`
	ZoneID           *uint      `json:"zone_id" form:"zone_id"`
	ExpReportingTime *time.Time `json:"exp_reporting_time" form:"exp_reporting_time" time_format:"2006-01-02T15:04:05Z07:00"`
	RFTagID          *uint      `json:"rftag_id" form:"rftag_id"`
}

func (r SubmissionRequest) toIssueRequest(userID uint, email, ip string) services.IssueRequest {
	req := services.IssueRequest{
		CustomerID:    userID,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		VehiclePlate:  r.VehicleNumber,
		Driver: services.IdentityInput{
			Name:       r.DriverName,
			Phone:      r.DriverPhone,
			Role:       models.RoleDriver,
			NationalID: r.DriverUID,
			Language:   r.DriverLanguage,
		},
		PONumber:         r.PONumber,
		ZoneID:           r.ZoneID,
		ExpReportingTime: r.ExpReportingTime,
		RFTagID:          r.RFTagID,
		IPAddress:        ip,
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		req.CustomerEmail = email
	}
	if strings.TrimSpace(r.HelperName) != "" || strings.TrimSpace(r.HelperPhone) != "" {
		req.Helper = &services.IdentityInput{
			Name:       r.HelperName,
			Phone:      r.HelperPhone,
			Role:       models.RoleHelper,
			NationalID: r.HelperUID,
			Language:   r.HelperLanguage,
		}
	}
	return req
}

// CreationNotifier рассылает событие о новой заявке открытым сессиям клиента
type CreationNotifier interface {
	SendSubmissionCreated(userID, submissionID uint, qrCodeImage string)
}

// SubmissionCreate выдает пропуск и затем привязывает приложенные документы.
// Ошибка привязки документа не отменяет выданный пропуск и возвращается в document_errors
func SubmissionCreate(issuer *services.GatePassIssuer, linker *services.DocumentLinker, notifier CreationNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form SubmissionRequest
		multipartForm := strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm)
		var err error
		if multipartForm {
			err = c.ShouldBindWith(&form, binding.FormMultipart)
		} else {
			err = c.ShouldBindJSON(&form)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error(), "code": "validation_failure"})
			return
		}

		userID, email, _ := currentUser(c)
		submission, err := issuer.Issue(c.Request.Context(), form.toIssueRequest(userID, email, c.ClientIP()))
		if err != nil {
			respondError(c, err)
			return
		}

		documents := []*models.Document{}
		documentErrors := map[string]string{}
		if multipartForm && c.Request.MultipartForm != nil {
			types := make([]string, 0, len(models.DocumentTypes))
			for docType := range models.DocumentTypes {
				types = append(types, docType)
			}
			sort.Strings(types)

			for _, docType := range types {
				files := c.Request.MultipartForm.File[docType]
				if len(files) == 0 {
					continue
				}
				data, contentType, err := readUpload(files[0])
				if err != nil {
					documentErrors[docType] = apperrors.PublicMessage(err)
					continue
				}

				phone := form.DriverPhone
				if models.DocumentTypes[docType].Role == models.RoleHelper {
					phone = form.HelperPhone
				}
				result, err := linker.Link(c.Request.Context(), services.LinkRequest{
					DocumentType: docType,
					FileName:     files[0].Filename,
					ContentType:  contentType,
					Data:         data,
					OwnerID:      userID,
					OwnerEmail:   email,
					VehiclePlate: form.VehicleNumber,
					PONumber:     form.PONumber,
					Phone:        phone,
				})
				if err != nil {
					documentErrors[docType] = apperrors.PublicMessage(err)
					continue
				}
				documents = append(documents, result.Document)
			}
		}

		if notifier != nil {
			notifier.SendSubmissionCreated(userID, submission.ID, submission.QRCodeImage)
		}

		response := gin.H{"submission": submission, "documents": documents}
		if len(documentErrors) > 0 {
			response["document_errors"] = documentErrors
		}
		c.JSON(http.StatusCreated, response)
	}
}

func SubmissionList(submissions *services.SubmissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, isAdmin := currentUser(c)
		list, err := submissions.List(c.Request.Context(), userID, isAdmin)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"submissions": list})
	}
}

// SubmissionGet возвращает заявку вместе с журналом аудита
func SubmissionGet(submissions *services.SubmissionService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		userID, _, isAdmin := currentUser(c)
		sub, err := submissions.Get(c.Request.Context(), id, userID, isAdmin)
		if err != nil {
			respondError(c, err)
			return
		}
		logs, err := audit.ListBySubmission(c.Request.Context(), sub.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"submission": sub, "audit_logs": logs})
	}
}

type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func SubmissionUpdateStatus(submissions *services.SubmissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req StatusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Необходимо указать статус", "code": "validation_failure"})
			return
		}
		_, email, _ := currentUser(c)
		status := models.SubmissionStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		sub, err := submissions.UpdateStatus(c.Request.Context(), id, status, email, c.ClientIP())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"submission": sub})
	}
}
