package verifiedid

import (
	"context"
	"log"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

const defaultTimeout = 8 * time.Second

var dataImagePattern = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/]+=*`)

type Config struct {
	// Endpoint is the createIssuanceRequest URL of the Request Service API.
	Endpoint string
	Timeout  time.Duration
}

// Client talks to the Verified ID Request Service API.
type Client struct {
	cfg        Config
	httpClient *req.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := req.C().
		SetTimeout(cfg.Timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	return &Client{cfg: cfg, httpClient: httpClient}
}

type issuanceResponse struct {
	RequestID string          `json:"requestId"`
	URL       string          `json:"url"`
	QRCode    string          `json:"qrCode"`
	Expiry    json.RawMessage `json:"expiry"`
}

type errorResponse struct {
	RequestID string `json:"requestId"`
	Error     struct {
		Code       string          `json:"code"`
		Message    string          `json:"message"`
		InnerError json.RawMessage `json:"innererror"`
	} `json:"error"`
}

// CreateIssuanceRequest posts the request with the bearer token. Upstream rejections come
// back as a failed result; only transport problems are returned as errors.
func (c *Client) CreateIssuanceRequest(ctx context.Context, accessToken string, request domain.IssuanceRequest) (domain.IssuanceResult, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetBodyJsonMarshal(request).
		Post(c.cfg.Endpoint)
	if err != nil {
		return domain.IssuanceResult{}, errors.Wrapf(err, "issuance request to %v failed", c.cfg.Endpoint)
	}
	body, err := resp.ToBytes()
	if err != nil {
		return domain.IssuanceResult{}, errors.Wrap(err, "failed to read issuance response")
	}
	return NormalizeResponse(resp.GetStatusCode(), resp.GetHeader("Content-Type"), body), nil
}

// NormalizeResponse turns a raw issuance response into a result. Declared JSON is parsed;
// anything else is scanned for an embedded data:image URI as a fallback.
func NormalizeResponse(status int, contentType string, body []byte) domain.IssuanceResult {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return failed(domain.KindUpstreamIssuanceFailure, status, body, errorRequestID(body))
	}
	if IsJSON(contentType) {
		return parseJSON(status, body)
	}
	return scanText(status, contentType, body)
}

func parseJSON(status int, body []byte) domain.IssuanceResult {
	var parsed issuanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("issuance response declared json but did not parse: %v", err)
		return failed(domain.KindMalformedUpstreamResponse, status, body, "")
	}
	return domain.IssuanceResult{
		Success:   true,
		RequestID: parsed.RequestID,
		URL:       parsed.URL,
		QRCode:    parsed.QRCode,
		Expiry:    parsed.Expiry,
	}
}

func scanText(status int, contentType string, body []byte) domain.IssuanceResult {
	qr := ScanDataImage(body)
	if qr == "" {
		return failed(domain.KindMalformedUpstreamResponse, status, body, "")
	}
	log.Printf("issuance response was %q, recovered qr code from raw text", contentType)
	return domain.IssuanceResult{Success: true, QRCode: qr}
}

// ScanDataImage returns the first data:image base64 URI embedded in text.
func ScanDataImage(text []byte) string {
	return string(dataImagePattern.Find(text))
}

// IsJSON reports whether a Content-Type header declares a JSON body.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func errorRequestID(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Error.InnerError) > 0 {
		log.Printf("issuance inner error: %s", parsed.Error.InnerError)
	}
	return parsed.RequestID
}

func failed(kind domain.ErrorKind, status int, body []byte, requestID string) domain.IssuanceResult {
	return domain.IssuanceResult{
		Failure: &domain.IssuanceFailure{
			Kind:      kind,
			Status:    status,
			Details:   domain.RawDetails(body),
			RequestID: requestID,
		},
	}
}
