package handlers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var menuCodePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// RegisterValidators 注册自定义校验规则，字段名使用 json 标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("binding 校验引擎不是 validator/v10")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("menucode", validateMenuCode); err != nil {
		return err
	}
	return v.RegisterValidation("username", validateUsername)
}

// menucode: 字母、数字、下划线
func validateMenuCode(fl validator.FieldLevel) bool {
	return menuCodePattern.MatchString(fl.Field().String())
}

// username: 可打印且不含空白
func validateUsername(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
