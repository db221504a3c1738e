// Package lambdaboot assembles the host's backends from Config: the AWS
// clients when any AWS resource is configured, and the share service on top
// of S3/DynamoDB/EventBridge or the local file store.
package lambdaboot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/events"
	"github.com/fpang/photobooth/internal/logging"
	"github.com/fpang/photobooth/internal/share"
	"github.com/fpang/photobooth/internal/store"
)

// AWSClients holds the loaded AWS config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{Config: cfg, SSM: ssm.NewFromConfig(cfg)}, nil
}

// ParameterAPI is the SSM call used to resolve parameters.
type ParameterAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveBaseURL returns cfg.BaseURL, else the value of the SSM parameter
// cfg.BaseURLParam, else http://localhost:<port>.
func ResolveBaseURL(ctx context.Context, params ParameterAPI, cfg Config) (string, error) {
	if cfg.BaseURL != "" {
		return cfg.BaseURL, nil
	}
	if cfg.BaseURLParam != "" && params != nil {
		start := time.Now()
		result, err := params.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           &cfg.BaseURLParam,
			WithDecryption: aws.Bool(false),
		})
		if err != nil {
			return "", fmt.Errorf("read base URL from SSM %s: %w", cfg.BaseURLParam, err)
		}
		if result.Parameter == nil || aws.ToString(result.Parameter.Value) == "" {
			return "", fmt.Errorf("SSM parameter %s is empty", cfg.BaseURLParam)
		}
		log.Debug().Str("param", cfg.BaseURLParam).Dur("elapsed", time.Since(start)).Msg("Base URL loaded from SSM")
		return aws.ToString(result.Parameter.Value), nil
	}
	return "http://localhost:" + cfg.Port, nil
}

// directLinkTTL bounds presigned share links. Full-size shares redirect to S3
// so large strips do not pass through the Lambda response.
const directLinkTTL = 15 * time.Minute

// ShareBackends are the stores behind the share service.
type ShareBackends struct {
	Blobs    share.BlobStore
	Index    store.ShareStore
	Notifier share.Notifier
}

// InitShareBackends picks S3 blobs, a DynamoDB index and an EventBridge
// notifier where configured, and local files otherwise. aws may be nil when
// cfg.NeedsAWS is false.
func InitShareBackends(cfg Config, awsc *AWSClients, startup *logging.StartupLogger) (ShareBackends, error) {
	var b ShareBackends

	if cfg.S3Bucket != "" {
		client := s3.NewFromConfig(awsc.Config)
		b.Blobs = share.NewS3Blobs(client, cfg.S3Bucket, share.DefaultMaxBytes).
			WithPresign(s3.NewPresignClient(client), directLinkTTL)
		startup.S3Bucket("shares", cfg.S3Bucket)
	} else {
		blobs, err := share.NewFileBlobs(cfg.ShareDir())
		if err != nil {
			return b, err
		}
		b.Blobs = blobs
		startup.Dir("shares", cfg.ShareDir())
	}

	if cfg.ShareTable != "" {
		b.Index = store.NewDynamoStore(dynamodb.NewFromConfig(awsc.Config), cfg.ShareTable)
		startup.DynamoTable("shares", cfg.ShareTable)
	} else {
		dir := filepath.Join(cfg.ShareDir(), "index")
		index, err := store.NewFileStore(dir)
		if err != nil {
			return b, err
		}
		b.Index = index
		startup.Dir("shareIndex", dir)
	}

	if cfg.EventBus != "" {
		b.Notifier = events.NewPublisher(eventbridge.NewFromConfig(awsc.Config), cfg.EventBus)
		startup.EventBus("shares", cfg.EventBus)
	}
	startup.Feature("shareEvents", b.Notifier != nil)
	return b, nil
}

// NewShareService builds the share service for cfg, loading AWS clients
// only when a configured backend needs them.
func NewShareService(ctx context.Context, cfg Config, startup *logging.StartupLogger) (*share.Service, error) {
	var awsc *AWSClients
	var params ParameterAPI
	if cfg.NeedsAWS() {
		c, err := InitAWS(ctx)
		if err != nil {
			return nil, err
		}
		awsc, params = &c, c.SSM
	}
	if cfg.BaseURL == "" && cfg.BaseURLParam != "" {
		startup.SSMParam("baseURL", cfg.BaseURLParam)
	}

	base, err := ResolveBaseURL(ctx, params, cfg)
	if err != nil {
		return nil, err
	}
	backends, err := InitShareBackends(cfg, awsc, startup)
	if err != nil {
		return nil, err
	}

	opts := []share.Option{share.WithTTL(cfg.ShareTTL)}
	if backends.Notifier != nil {
		opts = append(opts, share.WithNotifier(backends.Notifier))
	}
	svc, err := share.NewService(base, backends.Blobs, backends.Index, opts...)
	if err != nil {
		return nil, err
	}
	startup.Config("baseURL", svc.BaseURL()).Config("shareTTL", cfg.ShareTTL.String())
	return svc, nil
}

// StartupLog returns a startup logger carrying the elapsed init time.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
