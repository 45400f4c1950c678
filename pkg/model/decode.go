package model

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/callrota/pkg/errors"
)

// Format 配置文件格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath 按扩展名判断格式，未知扩展名按 YAML 处理
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DecodeConfig 以默认配置为底解码排班配置，拒绝未知字段。
// 只做解码，不做校验
func DecodeConfig(r io.Reader, format Format) (*SchedulingConfig, error) {
	cfg := DefaultSchedulingConfig()

	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	default:
		return nil, apperrors.Configuration("不支持的配置格式: %s", format)
	}

	if errors.Is(err, io.EOF) {
		return nil, apperrors.Configuration("排班配置为空")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "排班配置解析失败")
	}
	return &cfg, nil
}

// LoadConfigFile 读取排班配置文件
func LoadConfigFile(path string) (*SchedulingConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "读取排班配置失败")
	}
	defer f.Close()
	return DecodeConfig(f, FormatForPath(path))
}
