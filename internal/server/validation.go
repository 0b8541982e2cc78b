package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"neweyes-online/internal/content"
	"neweyes-online/internal/live"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	maxNameLength  = 80
	maxTitleLength = 140
	joinCodeLength = 6
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("die", func(fl validator.FieldLevel) bool {
			return live.ValidDie(fl.Field().String())
		})
		_ = engine.RegisterValidation("direction", func(fl validator.FieldLevel) bool {
			return content.ValidDirection(fl.Field().String())
		})
		_ = engine.RegisterValidation("blocktype", func(fl validator.FieldLevel) bool {
			return content.ValidBlockType(fl.Field().String())
		})
		_ = engine.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
			return content.ValidAudience(fl.Field().String())
		})
		_ = engine.RegisterValidation("blockmode", func(fl validator.FieldLevel) bool {
			return content.ValidMode(fl.Field().String())
		})
		_ = engine.RegisterValidation("rollmode", func(fl validator.FieldLevel) bool {
			mode := live.RollMode(fl.Field().String())
			return mode == live.ModePlayer || mode == live.ModeDigital
		})
		_ = engine.RegisterValidation("target", func(fl validator.FieldLevel) bool {
			return validTarget(fl.Field().String())
		})
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
	})
}

func validTarget(target string) bool {
	if target == "" || target == live.TargetAll {
		return true
	}
	_, err := uuid.Parse(target)
	return err == nil
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateTitle(title string) (string, error) {
	return validateText("title", title, maxTitleLength)
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len([]rune(trimmed)) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

// normalizeCode upper-cases a join code and drops whitespace so codes read
// aloud at the table can be typed loosely.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
