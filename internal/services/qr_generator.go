package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPayload - содержимое QR-кода. Терминал КПП ищет связку по этому id, персональных данных нет
type QRPayload struct {
	ID uint `json:"id"`
}

// canonicalJSON сериализует значение с отсортированными ключами, без пробелов и HTML-экранирования
func canonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// PayloadHash - SHA-256 от канонического JSON {"poDriverVehicleTaggingId": id}
func PayloadHash(poDriverVehicleTaggingID uint) (string, error) {
	data, err := canonicalJSON(map[string]interface{}{
		"poDriverVehicleTaggingId": poDriverVehicleTaggingID,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации данных QR: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateQRCode рисует PNG: коррекция ошибок H, 10 пикселей на модуль, стандартная рамка в 4 модуля
func GenerateQRCode(payload QRPayload) ([]byte, error) {
	data, err := canonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации данных QR: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Highest, -10)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации QR-кода: %w", err)
	}
	return png, nil
}

func qrCodePath(poDriverVehicleTaggingID uint) string {
	return fmt.Sprintf("qr_codes/qr_%d.png", poDriverVehicleTaggingID)
}
