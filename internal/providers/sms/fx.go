package sms

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(func(log *zap.Logger) Sender {
		return NewConsoleSender(log)
	}),
)
