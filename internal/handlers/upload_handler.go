package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/services"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// readUpload читает файл формы целиком. Чтение ограничено MaxDocumentSize+1,
// чтобы превышение размера отклонялось проверкой документа
func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", apperrors.Validation("Не удалось прочитать файл")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, services.MaxDocumentSize+1))
	if err != nil {
		return nil, "", apperrors.Validation("Не удалось прочитать файл")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный ID", "code": "validation_failure"})
		return 0, false
	}
	return uint(id), true
}

// DocumentUpload принимает multipart-форму: file, document_type и ключ сущности
// (vehicle_number, po_number или phone)
func DocumentUpload(linker *services.DocumentLinker) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Файл не найден", "code": "validation_failure"})
			return
		}
		data, contentType, err := readUpload(fh)
		if err != nil {
			respondError(c, err)
			return
		}

		userID, email, _ := currentUser(c)
		result, err := linker.Link(c.Request.Context(), services.LinkRequest{
			DocumentType: c.PostForm("document_type"),
			FileName:     fh.Filename,
			ContentType:  contentType,
			Data:         data,
			OwnerID:      userID,
			OwnerEmail:   email,
			VehiclePlate: c.PostForm("vehicle_number"),
			PONumber:     c.PostForm("po_number"),
			Phone:        c.PostForm("phone"),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"document":       result.Document,
			"replaced":       len(result.Replaced),
			"reference_kind": result.Reference.Kind(),
			"reference_id":   result.Reference.Key(),
		})
	}
}

func DocumentList(linker *services.DocumentLinker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := currentUser(c)
		includeInactive := c.Query("include_inactive") == "true"
		docs, err := linker.List(c.Request.Context(), userID, c.Query("document_type"), includeInactive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs})
	}
}

func DocumentInfo(linker *services.DocumentLinker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		userID, _, _ := currentUser(c)
		doc, err := linker.Get(c.Request.Context(), id, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"document": doc})
	}
}

func DocumentDownload(linker *services.DocumentLinker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		userID, _, _ := currentUser(c)
		doc, rc, err := linker.Open(c.Request.Context(), id, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		defer rc.Close()

		c.DataFromReader(http.StatusOK, doc.FileSize, doc.ContentType, rc, map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Name),
		})
	}
}

func DocumentDelete(linker *services.DocumentLinker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		userID, _, _ := currentUser(c)
		hard := c.Query("hard_delete") == "true"
		if err := linker.Remove(c.Request.Context(), id, userID, hard); err != nil {
			respondError(c, err)
			return
		}
		if hard {
			c.JSON(http.StatusOK, gin.H{"message": "Документ удален"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Документ деактивирован"})
	}
}
