package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"devfeed/internal/domain"
)

// sourceFile описывает формат файла источников.
type sourceFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Provider         string         `yaml:"provider"`
	URL              string         `yaml:"url"`
	Active           *bool          `yaml:"active"`
	AutoFetchEnabled *bool          `yaml:"auto_fetch_enabled"`
	Config           map[string]any `yaml:"config"`
}

// LoadSources читает YAML-файл с источниками.
func LoadSources(path string) ([]domain.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	sources, err := ParseSources(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sources, nil
}

// ParseSources разбирает описание источников. Конфигурация каждого источника проверяется
// строгим декодером провайдера: неизвестные ключи и недопустимые значения дают ошибку.
func ParseSources(data []byte) ([]domain.Source, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var file sourceFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Sources))
	sources := make([]domain.Source, 0, len(file.Sources))
	for i, entry := range file.Sources {
		src, err := entry.toSource()
		if err != nil {
			return nil, fmt.Errorf("source #%d (%s): %w", i+1, entry.ID, err)
		}
		if _, dup := seen[src.ID]; dup {
			return nil, fmt.Errorf("source #%d: duplicate id %q", i+1, src.ID)
		}
		seen[src.ID] = struct{}{}
		sources = append(sources, src)
	}
	return sources, nil
}

func (e sourceEntry) toSource() (domain.Source, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return domain.Source{}, errors.New("id is required")
	}
	provider, ok := domain.ParseProviderType(e.Provider)
	if !ok {
		return domain.Source{}, fmt.Errorf("unknown provider %q", e.Provider)
	}
	url := strings.TrimSpace(e.URL)
	if url == "" {
		return domain.Source{}, errors.New("url is required")
	}
	raw, err := json.Marshal(e.Config)
	if err != nil {
		return domain.Source{}, fmt.Errorf("encode config: %w", err)
	}
	cfg, err := domain.DecodeProviderConfig(provider, raw)
	if err != nil {
		return domain.Source{}, err
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = id
	}
	return domain.Source{
		ID:               id,
		Name:             name,
		Provider:         provider,
		BaseURL:          url,
		Config:           cfg,
		Active:           boolOr(e.Active, true),
		AutoFetchEnabled: boolOr(e.AutoFetchEnabled, true),
		Status:           domain.StatusIdle,
	}, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
