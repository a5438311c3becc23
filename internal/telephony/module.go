package telephony

import (
	callsvc "calldesk_backend/internal/calls/service"
	apphttp "calldesk_backend/internal/http"
	"calldesk_backend/platform/config"
	"calldesk_backend/platform/logger"
)

// Module is the telephony bounded context module implementing http.Module.
type Module struct {
	handler    *Handler
	controller *Controller
}

func NewModule(cfg config.TelephonyConfig, recorder OutcomeRecorder, log *logger.Logger) *Module {
	gateway := NewGateway(GatewayConfig{
		BaseURL: cfg.GetVoiceGatewayURL(),
		APIKey:  cfg.GetVoiceGatewayAPIKey(),
	})
	controller := NewController(gateway, recorder, log, cfg.GetCallPollInterval(), cfg.GetCallPollTimeout())

	return &Module{
		handler:    NewHandler(controller),
		controller: controller,
	}
}

func (m *Module) Name() string {
	return "telephony"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/telephony")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
var _ OutcomeRecorder = (*callsvc.Service)(nil)
