package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// Register 在 gin 的校验引擎上注册芯片相关标签
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = RegisterOn(v)
	})
	return err
}

// RegisterOn 注册自定义标签，字段名取 json tag
func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("chip_uid", validateChipUID); err != nil {
		return err
	}
	return v.RegisterValidation("hex16", validateHex16)
}

func validateChipUID(fl validator.FieldLevel) bool {
	_, err := service.NormalizeUID(fl.Field().String())
	return err == nil
}

func validateHex16(fl validator.FieldLevel) bool {
	return service.IsHexBlock(strings.TrimSpace(fl.Field().String()))
}

// FieldErrors 将校验错误整理为 字段 -> 提示
func FieldErrors(err error) map[string]string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = message(fieldErr)
	}
	return details
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "chip_uid":
		return "must be a 4, 7 or 10 byte hexadecimal UID"
	case "hex16":
		return "must be 32 hexadecimal characters"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}
