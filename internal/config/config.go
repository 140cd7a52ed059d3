package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"production"`
	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret          string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Supabase storage (S3-compatible) settings for evidence files
	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"evidence"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Gemini settings
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel      string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiTimeoutSec int    `envconfig:"GEMINI_TIMEOUT_SEC" default:"30"`

	// Transcription hand-off settings
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`
	TranscriptionTopic            string `envconfig:"TRANSCRIPTION_TOPIC" default:"transcription_jobs"`
	TranscriptionCallbackURL      string `envconfig:"TRANSCRIPTION_CALLBACK_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Stripe settings
	StripeSecretKey        string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret    string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceRecovery    string `envconfig:"STRIPE_PRICE_RECOVERY"`
	StripePriceEmpowerment string `envconfig:"STRIPE_PRICE_EMPOWERMENT"`
	StripePortalReturnURL  string `envconfig:"STRIPE_PORTAL_RETURN_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
