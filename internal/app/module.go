package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/contactbook/internal/app/api/server"
	"github.com/fatflowers/contactbook/internal/app/service/auth"
	"github.com/fatflowers/contactbook/internal/app/service/billing"
	"github.com/fatflowers/contactbook/internal/app/service/contact"
	"github.com/fatflowers/contactbook/internal/app/service/interaction"
	"github.com/fatflowers/contactbook/internal/app/service/note"
	"github.com/fatflowers/contactbook/internal/app/service/setting"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	"github.com/fatflowers/contactbook/internal/app/service/subscription"
	"github.com/fatflowers/contactbook/internal/app/service/tag"
	"github.com/fatflowers/contactbook/internal/app/service/user"
	webhookhandler "github.com/fatflowers/contactbook/internal/app/service/webhook_handler"
	webhooklog "github.com/fatflowers/contactbook/internal/app/service/webhook_log"
	"github.com/fatflowers/contactbook/internal/platform/db"
	"github.com/fatflowers/contactbook/internal/platform/stripe/stripe_api"
	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	stripe_api.Module,
	server.Module,
	billing.Module,
	subscription.Module,
	user.Module,
	setting.Module,
	auth.Module,
	statistics.Module,
	webhooklog.Module,
	webhookhandler.Module,
	contact.Module,
	interaction.Module,
	note.Module,
	tag.Module,
)
