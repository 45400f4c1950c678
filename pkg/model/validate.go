package model

import (
	"errors"
	"sync"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	apperrors "github.com/paiban/callrota/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

func initValidator() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	translator, _ = uni.GetTranslator("zh")
	// 翻译注册失败时仍可使用英文错误信息
	_ = zh_translations.RegisterDefaultTranslations(validate, translator)
}

// Validate 对排班配置做结构校验（字段格式、取值范围）。
// 语义校验（如认领的班次是否存在）由 registry 负责
func (c *SchedulingConfig) Validate() error {
	validateOnce.Do(initValidator)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, apperrors.CodeConfiguration, "配置校验失败")
	}

	var ve apperrors.ValidationErrors
	for _, fe := range fieldErrs {
		ve.Add(fe.Namespace(), fe.Translate(translator))
	}
	return ve.ToConfigurationError()
}
