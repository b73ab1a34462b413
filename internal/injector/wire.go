//go:build wireinject
// +build wireinject

package injector

import (
	"context"

	"github.com/google/wire"

	"creatorhub/internal/config"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
