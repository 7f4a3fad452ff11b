package registry

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"devfeed/internal/domain"
	"devfeed/internal/infra/httpclient"
)

type stubAdapter struct{ provider domain.ProviderType }

func (s stubAdapter) Provider() domain.ProviderType { return s.provider }
func (s stubAdapter) Fetch(context.Context, domain.Source) ([]domain.FetchedItem, error) {
	return nil, nil
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r, err := New(stubAdapter{domain.ProviderRSS})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := r.Register(stubAdapter{domain.ProviderRSS}); err == nil {
		t.Fatalf("ожидали ошибку повторной регистрации")
	}
	if _, ok := r.Adapter(domain.ProviderReddit); ok {
		t.Fatalf("не ожидали адаптер reddit")
	}
}

func TestNewDefaultRegistersAllProviders(t *testing.T) {
	r := NewDefault(httpclient.Options{}, Endpoints{}, zerolog.Nop())
	if diff := cmp.Diff(domain.ProviderTypes, r.Providers()); diff != "" {
		t.Fatalf("неожиданные провайдеры (-want +got):\n%s", diff)
	}
	a, _ := r.Adapter(domain.ProviderHackerNews)
	if _, ok := a.(domain.DefaultSourcer); !ok {
		t.Fatalf("адаптер новостей должен создавать источник по умолчанию")
	}
}
