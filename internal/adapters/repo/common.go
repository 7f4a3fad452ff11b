package repo

import (
	_ "embed"
	"fmt"
	"strings"

	"devfeed/internal/domain"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// applyStoredConfig восстанавливает типизированную конфигурацию источника тем же строгим декодером,
// что и при загрузке файла источников. Ошибка разбора не прерывает чтение: она сохраняется
// в src.ConfigErr, чтобы одна испорченная строка не останавливала остальные источники.
func applyStoredConfig(src *domain.Source, provider string, raw []byte) {
	src.Provider = domain.ProviderType(provider)
	p, ok := domain.ParseProviderType(provider)
	if !ok {
		src.ConfigErr = fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidConfig, provider)
		return
	}
	src.Provider = p
	cfg, err := domain.DecodeProviderConfig(p, raw)
	if err != nil {
		src.ConfigErr = err
		return
	}
	src.Config = cfg
}

func prepareSource(src domain.Source) (domain.Source, []byte, error) {
	src.ID = strings.TrimSpace(src.ID)
	if src.ID == "" {
		return src, nil, fmt.Errorf("source id is empty")
	}
	if _, ok := domain.ParseProviderType(string(src.Provider)); !ok {
		return src, nil, fmt.Errorf("source %s: unknown provider %q", src.ID, src.Provider)
	}
	if src.Config != nil && src.Config.Provider() != src.Provider {
		return src, nil, fmt.Errorf("source %s: config for %s does not match provider %s", src.ID, src.Config.Provider(), src.Provider)
	}
	if strings.TrimSpace(src.Name) == "" {
		src.Name = src.ID
	}
	if src.Status == "" {
		src.Status = domain.StatusIdle
	}
	raw, err := domain.EncodeProviderConfig(src.Config)
	if err != nil {
		return src, nil, fmt.Errorf("source %s: encode config: %w", src.ID, err)
	}
	return src, raw, nil
}
