package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
)

// PostToConnectionAPI is the part of the API Gateway management client the
// pusher uses.
type PostToConnectionAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// Connections lists and prunes the connection ids of a user.
type Connections interface {
	List(ctx context.Context, userID string) ([]string, error)
	Remove(ctx context.Context, userID, connectionID string) error
}

// NewAPIGatewayClient creates a management client for a websocket API stage
// endpoint such as https://abc.execute-api.us-east-1.amazonaws.com/prod.
func NewAPIGatewayClient(cfg aws.Config, endpoint string) *apigatewaymanagementapi.Client {
	return apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
}

// APIGatewayPusher posts push payloads to every API Gateway websocket
// connection of the recipient. Gone connections are pruned.
type APIGatewayPusher struct {
	api         PostToConnectionAPI
	connections Connections
	logger      *zap.Logger
}

func NewAPIGatewayPusher(api PostToConnectionAPI, connections Connections, logger *zap.Logger) *APIGatewayPusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIGatewayPusher{api: api, connections: connections, logger: logger}
}

// SendPush succeeds when at least one connection accepted the payload.
func (p *APIGatewayPusher) SendPush(ctx context.Context, to string, payload notifications.PushPayload) error {
	ids, err := p.connections.List(ctx, to)
	if err != nil {
		return transportError("apigateway", err)
	}
	if len(ids) == 0 {
		return transportError("apigateway", fmt.Errorf("no live connection for user %s", to))
	}

	data, err := json.Marshal(map[string]any{"type": "notification", "data": payload})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	var lastErr error
	delivered := 0
	for _, id := range ids {
		_, err := p.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(id),
			Data:         data,
		})
		var gone *apigwtypes.GoneException
		switch {
		case err == nil:
			delivered++
		case errors.As(err, &gone):
			if rmErr := p.connections.Remove(ctx, to, id); rmErr != nil {
				p.logger.Warn("failed to prune gone connection", zap.String("connection_id", id), zap.Error(rmErr))
			}
			lastErr = err
		default:
			lastErr = err
		}
	}

	if delivered == 0 {
		return transportError("apigateway", lastErr)
	}
	return nil
}
