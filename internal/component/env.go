// internal/component/env.go
package component

import (
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/eventsite/internal/authz"
	"github.com/yanizio/eventsite/internal/config"
	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/middleware"
	"github.com/yanizio/eventsite/internal/page"
)

// Env exposes shared resources to Components during Init.
type Env struct {
	Config        *config.Config
	DB            *sqlx.DB
	Chain         *authz.Chain
	Domains       *domain.Service
	Pages         *page.Store
	VerifyLimiter *middleware.RateLimiter
}
