package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DecodeJSON decode request body ke struct
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// ValidationErrors map field -> pesan error
type ValidationErrors map[string]string

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Pakai nama field JSON di pesan error
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return IsValidPassword(fl.Field().String())
	})
	return v
}

// ValidateStruct menjalankan tag `validate` dan mengembalikan error per field.
// Nil jika valid.
func ValidateStruct(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{"request": err.Error()}
	}

	out := ValidationErrors{}
	for _, fe := range verrs {
		out[fieldPath(fe)] = validationMessage(fe)
	}
	return out
}

// fieldPath membuang nama struct dari namespace: "Req.items[0].jumlah" -> "items[0].jumlah".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Wajib diisi"
	case "email":
		return "Format email tidak valid"
	case "password":
		return "Password minimal 8 karakter, mengandung huruf dan angka"
	case "uuid":
		return "ID tidak valid"
	case "datetime":
		return fmt.Sprintf("Format tanggal harus %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Harus salah satu dari: %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Minimal %s", fe.Param())
		}
		return fmt.Sprintf("Nilai minimal %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Maksimal %s karakter", fe.Param())
		}
		return fmt.Sprintf("Nilai maksimal %s", fe.Param())
	}
	return fmt.Sprintf("Tidak valid (%s)", fe.Tag())
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

var (
	letterRegex = regexp.MustCompile(`[a-zA-Z]`)
	digitRegex  = regexp.MustCompile(`[0-9]`)
)

func IsValidPassword(password string) bool {
	// Minimal 8 karakter, ada huruf dan angka
	if len(password) < 8 {
		return false
	}
	return letterRegex.MatchString(password) && digitRegex.MatchString(password)
}

func SanitizeString(s string) string {
	return strings.TrimSpace(s)
}
