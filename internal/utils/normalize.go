package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRe      = regexp.MustCompile(`^\+91\d{10}$`)
	nationalIDRe = regexp.MustCompile(`^\d{12}$`)
	plateRe      = regexp.MustCompile(`^[A-Z0-9 \-]+$`)
)

// NormalizeKey приводит натуральный ключ (госномер, номер PO) к единому виду
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func IsValidPlate(plate string) bool {
	return plateRe.MatchString(plate)
}

// NormalizePhone убирает пробелы и дефисы; номер без кода страны дополняется +91
func NormalizePhone(phone string) string {
	p := stripSeparators(phone)
	if len(p) == 10 && !strings.HasPrefix(p, "+") {
		p = "+91" + p
	}
	return p
}

func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// NormalizeNationalID убирает пробелы и дефисы из номера Aadhar
func NormalizeNationalID(id string) string {
	return stripSeparators(id)
}

func IsValidNationalID(id string) bool {
	return nationalIDRe.MatchString(id)
}

func stripSeparators(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}
