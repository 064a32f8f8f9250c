package transport

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/config"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
)

// Outbound is the set of transports selected by configuration.
type Outbound struct {
	Senders notifications.Senders
	// Connections is set when push goes through API Gateway.
	Connections *ConnectionStore
}

// New builds the configured transports. hub serves push when the provider
// is "websocket". The AWS config is loaded only when a provider needs it.
func New(ctx context.Context, cfg *config.Config, hub notifications.PushSender, logger *zap.Logger) (*Outbound, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := cfg.Notifications
	out := &Outbound{}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &c
		return c, nil
	}

	switch n.EmailProvider {
	case "ses":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		out.Senders.Email = NewSESSender(sesv2.NewFromConfig(c), n.FromAddress)
	case "smtp":
		out.Senders.Email = NewSMTPSender(n.SMTP.Host, n.SMTP.Port, n.SMTP.Username, n.SMTP.Password, n.FromAddress, n.FromName)
	case "", "none":
	default:
		return nil, fmt.Errorf("unsupported email provider %q", n.EmailProvider)
	}

	switch n.SMSProvider {
	case "sns":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		out.Senders.SMS = NewSNSSender(sns.NewFromConfig(c), n.SMSSenderID)
	case "", "none":
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", n.SMSProvider)
	}

	switch n.PushProvider {
	case "websocket":
		out.Senders.Push = hub
	case "apigateway":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		out.Connections = NewConnectionStore(dynamodb.NewFromConfig(c), n.ConnectionsTable)
		out.Senders.Push = NewAPIGatewayPusher(NewAPIGatewayClient(c, n.APIGatewayEndpoint), out.Connections, logger)
	case "", "none":
	default:
		return nil, fmt.Errorf("unsupported push provider %q", n.PushProvider)
	}

	logger.Info("Configured notification transports",
		zap.String("email", n.EmailProvider),
		zap.String("sms", n.SMSProvider),
		zap.String("push", n.PushProvider))
	return out, nil
}
