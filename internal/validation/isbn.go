// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var isbnCleaner = strings.NewReplacer("-", "", " ", "")

// NormalizeISBN удаляет дефисы и пробелы и приводит контрольный символ X к верхнему регистру.
func NormalizeISBN(s string) string {
	return strings.ToUpper(isbnCleaner.Replace(strings.TrimSpace(s)))
}

// IsValidISBN проверяет контрольную сумму ISBN-10 или ISBN-13.
func IsValidISBN(s string) bool {
	isbn := NormalizeISBN(s)

	switch len(isbn) {
	case 10:
		return validISBN10(isbn)
	case 13:
		return validISBN13(isbn)
	default:
		return false
	}
}

func validISBN10(isbn string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		ch := isbn[i]
		var digit int
		switch {
		case ch >= '0' && ch <= '9':
			digit = int(ch - '0')
		case ch == 'X' && i == 9:
			digit = 10
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(isbn string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		ch := isbn[i]
		if ch < '0' || ch > '9' {
			return false
		}
		digit := int(ch - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return sum%10 == 0
}

// NewValidator создаёт валидатор структур с тегом isbn, проверяющим контрольную сумму.
func NewValidator() *validator.Validate {
	v := validator.New()
	// Встроенный тег isbn переопределяется: он не допускает пробелов.
	_ = v.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		return IsValidISBN(fl.Field().String())
	})
	return v
}
