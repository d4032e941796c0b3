package proposal

import (
	"github.com/smallbiznis/bookline/internal/proposal/repository"
	"github.com/smallbiznis/bookline/internal/proposal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("proposal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
