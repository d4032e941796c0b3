package capacity

import (
	"github.com/smallbiznis/bookline/internal/capacity/repository"
	"github.com/smallbiznis/bookline/internal/capacity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("capacity.allocator",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
