package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/db"
	httpserver "aurora_schema_migrator/internal/http"
	"aurora_schema_migrator/internal/logging"
)

type handler struct {
	exec   db.Executor
	logger *slog.Logger
}

func (h handler) serve(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": httpserver.CORSHeaders["Access-Control-Allow-Origin"],
	}

	resp, err := httpserver.ListPosts(ctx, h.exec)
	if err != nil {
		h.logger.Error("list posts failed", "error", err, "request_id", req.RequestContext.RequestID)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":{"code":"query_failed","message":"failed to read posts"}}`,
		}, nil
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	exec, err := db.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open executor: %v", err)
	}

	lambda.Start(handler{exec: exec, logger: logger}.serve)
}
