// AWS SigV4 request signing for capability backends declaring
// `auth: aws-sigv4`.
//
// DESIGN: Adapted from the teacher's gateway.BedrockSigner - same
// credential-chain loading via aws-sdk-go-v2/config and the same
// aws-sdk-go-v2/aws/signer/v4 signer, generalized from a single
// hardcoded "bedrock-runtime" service/host to any AWS service/region
// a capability file names, since capabilities may target arbitrary
// signed AWS REST APIs, not just Bedrock.
package secrets

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog/log"
)

// SigV4Signer signs outbound HTTP requests for any AWS service using
// the default credential chain (environment, shared config, IAM role).
type SigV4Signer struct {
	credentials aws.CredentialsProvider
	region      string
	signer      *v4.Signer
	configured  bool
}

// NewSigV4Signer creates a signer for the given region, loading
// credentials from the default AWS chain. The returned signer is
// non-nil even when no credentials are available; IsConfigured
// reports that case so callers can surface a clear error instead of
// a confusing signature failure.
func NewSigV4Signer(ctx context.Context, region string) *SigV4Signer {
	if region == "" {
		region = "us-east-1"
	}

	s := &SigV4Signer{region: region, signer: v4.NewSigner()}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Warn().Err(err).Msg("secrets: failed to load AWS config for sigv4 signer")
		return s
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil || creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		log.Debug().Msg("secrets: no AWS credentials available, sigv4 signer not configured")
		return s
	}

	s.credentials = cfg.Credentials
	s.configured = true
	return s
}

// IsConfigured reports whether AWS credentials are available.
func (s *SigV4Signer) IsConfigured() bool { return s.configured }

// Sign signs req for the given AWS service using SigV4, hashing body
// for the payload signature.
func (s *SigV4Signer) Sign(ctx context.Context, req *http.Request, service string, body []byte) error {
	if !s.configured {
		return fmt.Errorf("secrets: sigv4 signer not configured: no AWS credentials available")
	}

	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("secrets: retrieve AWS credentials: %w", err)
	}

	payloadHash := fmt.Sprintf("%x", sha256.Sum256(body))
	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, service, s.region, time.Now()); err != nil {
		return fmt.Errorf("secrets: sign request: %w", err)
	}
	return nil
}
