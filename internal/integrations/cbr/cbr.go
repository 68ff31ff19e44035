package cbr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-ledger/internal/config"
)

const (
	soapNamespace = "http://www.w3.org/2003/05/soap-envelope"
	cbrNamespace  = "http://web.cbr.ru/"
	keyRateAction = cbrNamespace + "KeyRate"

	// lookback covers weekends and holidays, when no rate is published.
	lookback = 30 * 24 * time.Hour
)

// CBRClient fetches the Central Bank key rate. The ledger uses it as the
// default interest rate of new savings accounts and serves it on /key-rate.
// A fetched rate is reused for cacheTTL.
type CBRClient struct {
	url      string
	client   *http.Client
	log      *logrus.Logger
	now      func() time.Time
	cacheTTL time.Duration

	mu        sync.Mutex
	rate      decimal.Decimal
	fetchedAt time.Time
}

// NewCBRClient initializes a new CBR client
func NewCBRClient(cfg *config.Config, log *logrus.Logger) *CBRClient {
	return &CBRClient{
		url:      cfg.CBRURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
		now:      time.Now,
		cacheTTL: cfg.KeyRateCacheTTL,
	}
}

// keyRateEnvelope builds the SOAP 1.2 KeyRate request for the lookback window ending now.
func (c *CBRClient) keyRateEnvelope() ([]byte, error) {
	to := c.now()
	from := to.Add(-lookback)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	env := doc.CreateElement("soap12:Envelope")
	env.CreateAttr("xmlns:soap12", soapNamespace)
	call := env.CreateElement("soap12:Body").CreateElement("KeyRate")
	call.CreateAttr("xmlns", cbrNamespace)
	call.CreateElement("fromDate").SetText(from.Format(time.DateOnly))
	call.CreateElement("ToDate").SetText(to.Format(time.DateOnly))

	return doc.WriteToBytes()
}

func (c *CBRClient) post(ctx context.Context, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", keyRateAction)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("key rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key rate request: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// latestRate returns the first KR row; the service lists newest first.
func latestRate(body []byte) (decimal.Decimal, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse XML: %w", err)
	}

	row := doc.FindElement("//diffgram/KeyRate/KR")
	if row == nil {
		return decimal.Zero, fmt.Errorf("no key rate data found in XML")
	}
	value := row.SelectElement("Rate")
	if value == nil {
		return decimal.Zero, fmt.Errorf("rate element not found in XML")
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(value.Text()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse rate: %w", err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative key rate %s", rate)
	}
	return rate, nil
}

// GetKeyRate returns the current key rate in percent.
func (c *CBRClient) GetKeyRate(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		return c.rate, nil
	}

	envelope, err := c.keyRateEnvelope()
	if err != nil {
		return decimal.Zero, err
	}
	body, err := c.post(ctx, envelope)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := latestRate(body)
	if err != nil {
		return decimal.Zero, err
	}

	c.rate, c.fetchedAt = rate, c.now()
	c.log.WithField("key_rate", rate.String()).Info("Key rate refreshed")
	return rate, nil
}
