// Пакет provider — загрузка свойств подключения к брокеру из
// JSON-файла вида {"properties": {"ключ": "значение"}}.
// Ключи не валидируются и применяются в окружение подключения как есть.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Gunvolt24/mq_listener/internal/ports"
)

type providerFile struct {
	Properties map[string]string `json:"properties"`
}

// Load читает провайдер-файл и возвращает окружение подключения.
// Отсутствующий файл и отсутствующая секция "properties" не считаются
// ошибкой: применяется ноль свойств, факт пишется в лог.
// Свойства с пустыми значениями пропускаются.
func Load(ctx context.Context, path string, log ports.Logger) (ports.Environment, error) {
	env := ports.Environment{}

	if strings.TrimSpace(path) == "" {
		log.Warnf(ctx, "provider file not configured, applying no connection properties")
		return env, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnf(ctx, "provider file %s not found, applying no connection properties", path)
			return env, nil
		}
		return nil, fmt.Errorf("read provider file %s: %w", path, err)
	}

	var pf providerFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse provider file %s: %w", path, err)
	}

	if pf.Properties == nil {
		log.Warnf(ctx, "no \"properties\" section in provider file %s", path)
		return env, nil
	}

	skipped := 0
	for k, v := range pf.Properties {
		if strings.TrimSpace(v) == "" {
			skipped++
			continue
		}
		env[k] = v
	}

	log.Infof(ctx, "applied %d connection properties from %s (skipped %d empty)", len(env), path, skipped)
	return env, nil
}
