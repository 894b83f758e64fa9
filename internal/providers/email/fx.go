package email

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/seawell/laguna/internal/config"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		log.Warn("smtp host not configured, email delivery disabled")
		return &NoOpProvider{}, nil
	}

	return NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
