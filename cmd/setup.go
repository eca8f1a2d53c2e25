package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/meridianstays/booking-webhook-app/internal/config"
	agentctl "github.com/meridianstays/booking-webhook-app/internal/controllers/agent"
	awsctl "github.com/meridianstays/booking-webhook-app/internal/controllers/aws"
	storectl "github.com/meridianstays/booking-webhook-app/internal/controllers/store"
	"github.com/meridianstays/booking-webhook-app/internal/handler"
	"github.com/meridianstays/booking-webhook-app/internal/handler/processor"
	"github.com/meridianstays/booking-webhook-app/internal/models"
	"github.com/meridianstays/booking-webhook-app/internal/ratelimit"
	"github.com/meridianstays/booking-webhook-app/internal/runtime"
)

// buildRuntime assembles the shared secret, rate limiter, processor registry
// and handler into a runtime for the selected mode.
func buildRuntime(cmd *cobra.Command) (*runtime.Runtime, *handler.Handler, error) {
	secret, err := resolveSecret(cmd)
	if err != nil {
		return nil, nil, err
	}

	limiter := ratelimit.NewLimiter(int(config.Webhook.RateLimit), config.Webhook.RateWindow,
		ratelimit.WithLogger(logger.With("component", "rate-limiter")))
	limiter.Start(cmd.Context())

	agent, store, conversations, err := buildCollaborators()
	if err != nil {
		return nil, nil, err
	}

	registry := processor.NewRegistry(processor.NewDiscardProcessor())
	registry.Register(models.TypeReservationUpdate, processor.NewReservationUpdateProcessor(agent, store))
	registry.Register(models.TypePromo, processor.NewPromoProcessor(agent, store))
	registry.Register(models.TypeUserInfo, processor.NewUserInfoProcessor(agent, store))

	handlerOpts := []handler.Option{
		handler.WithWebhookSecret(secret),
		handler.WithRateLimiter(limiter),
		handler.WithRegistry(registry),
		handler.WithAgent(agent),
		handler.WithMaxPayloadSize(config.Webhook.MaxPayloadSize),
		handler.WithAcceptUnknownTypes(config.Webhook.AcceptUnknownTypes),
		handler.WithContext(cmd.Context()),
		handler.WithLogger(logger.With("component", "webhook-handler")),
	}

	if conversations != nil {
		handlerOpts = append(handlerOpts, handler.WithConversationLog(conversations))
	}

	if config.Global.S3.Archive.Enabled {
		awsController, err := awsctl.NewController(
			awsctl.WithLogger(logger.With("component", "aws-controller")),
			awsctl.WithContext(cmd.Context()),
			awsctl.WithArchiveBucket(config.Global.S3.Archive.BucketName))
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create AWS controller")
		}
		handlerOpts = append(handlerOpts, handler.WithArchiver(awsController))
	}

	logger.Debug("creating webhook handler...")
	hdl, err := handler.NewWebhookHandler(handlerOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create the webhook handler")
	}

	logger.Debug("creating runtime...")
	rt := runtime.NewRuntime(hdl,
		runtime.WithLogger(logger.With("component", "runtime")),
		runtime.WithPrefix(config.Service.Prefix),
		runtime.WithTrustProxy(config.Webhook.TrustProxy),
		runtime.WithMaxBodySize(config.Webhook.MaxPayloadSize),
		runtime.WithLambdaPayloadType(config.Lambda.PayloadType))
	return rt, hdl, nil
}

// resolveSecret loads the shared secret once at startup. The value is never logged.
func resolveSecret(cmd *cobra.Command) (string, error) {
	switch config.Webhook.AuthMode {
	case "env", "":
		if config.Webhook.Secret == "" {
			return "", errors.New("a webhook secret is required. set WEBHOOK_SECRET or webhook.secret")
		}
		return config.Webhook.Secret, nil
	case "ssm":
		if config.Webhook.SecretSSMKey == "" {
			return "", errors.New("webhook.secretSSMKey is required when auth mode is 'ssm'")
		}
		awsController, err := awsctl.NewController(
			awsctl.WithLogger(logger.With("component", "aws-controller")),
			awsctl.WithContext(cmd.Context()))
		if err != nil {
			return "", errors.Wrap(err, "failed to create AWS controller")
		}
		secret, err := awsController.GetSecret(config.Webhook.SecretSSMKey, true)
		if err != nil {
			return "", errors.Wrap(err, "failed to fetch the webhook secret from SSM")
		}
		return *secret, nil
	default:
		return "", errors.Errorf("invalid webhook auth mode: %s", config.Webhook.AuthMode)
	}
}

func buildCollaborators() (processor.AgentInvoker, processor.Recorder, handler.ConversationLog, error) {
	var agent processor.AgentInvoker
	if config.Agent.URL != "" {
		ctl, err := agentctl.NewController(config.Agent.URL,
			agentctl.WithLogger(logger.With("component", "agent-controller")),
			agentctl.WithTimeout(config.Agent.Timeout))
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to create the agent controller")
		}
		agent = ctl
	} else {
		logger.Warn("no agent URL configured, webhook messages will be acknowledged without agent invocation")
		agent = processor.NoopAgent{Logger: logger.With("component", "agent-controller")}
	}

	var store processor.Recorder
	var conversations handler.ConversationLog
	if config.Store.URL != "" {
		ctl, err := storectl.NewController(config.Store.URL, config.Store.APIKey,
			storectl.WithLogger(logger.With("component", "store-controller")),
			storectl.WithTimeout(config.Store.Timeout))
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to create the store controller")
		}
		store = ctl
		conversations = ctl
	} else {
		logger.Warn("no store URL configured, audit records will not be persisted")
		store = processor.NoopRecorder{Logger: logger.With("component", "store-controller")}
	}

	return agent, store, conversations, nil
}
