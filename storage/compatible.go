package storage

import "fmt"

var wasabiEndpoints = map[string]string{
	"us-east-1":      "https://s3.wasabisys.com",
	"us-east-2":      "https://s3.us-east-2.wasabisys.com",
	"us-west-1":      "https://s3.us-west-1.wasabisys.com",
	"eu-central-1":   "https://s3.eu-central-1.wasabisys.com",
	"eu-west-1":      "https://s3.eu-west-1.wasabisys.com",
	"eu-west-2":      "https://s3.eu-west-2.wasabisys.com",
	"ap-northeast-1": "https://s3.ap-northeast-1.wasabisys.com",
	"ap-southeast-1": "https://s3.ap-southeast-1.wasabisys.com",
}

// WasabiEndpoint returns the regional Wasabi endpoint, falling back to us-east-1
func WasabiEndpoint(region string) string {
	if endpoint, ok := wasabiEndpoints[region]; ok {
		return endpoint
	}
	return wasabiEndpoints["us-east-1"]
}

// R2Endpoint returns the Cloudflare R2 endpoint of an account
func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// NewWasabiClient opens a Wasabi bucket through the S3 client. An explicit
// endpoint wins over the regional default.
func NewWasabiClient(cfg S3Config) (*S3Client, error) {
	cfg.Provider = "wasabi"
	if cfg.Endpoint == "" {
		cfg.Endpoint = WasabiEndpoint(cfg.Region)
	}
	return NewS3Client(cfg)
}

// NewR2Client opens a Cloudflare R2 bucket through the S3 client. R2 only
// accepts the "auto" region.
func NewR2Client(cfg S3Config, accountID string) (*S3Client, error) {
	cfg.Provider = "r2"
	cfg.Region = "auto"
	if cfg.Endpoint == "" {
		if accountID == "" {
			return nil, fmt.Errorf("account id is required for Cloudflare R2")
		}
		cfg.Endpoint = R2Endpoint(accountID)
	}
	return NewS3Client(cfg)
}
