package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/atlas-desktop/session-engine/pkg/utils"
)

// Korea Investment & Securities REST endpoints. "vps" is the paper
// trading host, "real" the live one; Credentials.Environment selects
// between them the same way the mojito2 client's mock flag does.
const (
	kisVPSBaseURL  = "https://openapivts.koreainvestment.com:29443"
	kisRealBaseURL = "https://openapi.koreainvestment.com:9443"
)

// kisRESTClient talks to the KIS REST API directly over net/http. It
// implements UpstreamClient and is what NewKISHTTPClientFactory hands
// to NewKISAdapter in production; tests use a hand-rolled fake instead.
type kisRESTClient struct {
	creds   Credentials
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewKISHTTPClientFactory returns a ClientFactory producing a
// kisRESTClient wired to the paper or live KIS host per
// creds.Environment. The client issues its own OAuth access token on
// first use and refreshes it once it's within a minute of expiry.
func NewKISHTTPClientFactory() ClientFactory {
	return func(creds Credentials) (UpstreamClient, error) {
		baseURL := kisVPSBaseURL
		if creds.Environment == "real" {
			baseURL = kisRealBaseURL
		}
		return &kisRESTClient{
			creds:   creds,
			baseURL: baseURL,
			http:    &http.Client{Timeout: 15 * time.Second},
		}, nil
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *kisRESTClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.creds.AppKey,
		"appsecret":  c.creds.AppSecret,
	})
	if err != nil {
		return "", err
	}

	tok, err := utils.Retry(utils.DefaultRetryConfig(), func() (tokenResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
		if err != nil {
			return tokenResponse{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return tokenResponse{}, fmt.Errorf("oauth token request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return tokenResponse{}, err
		}
		if resp.StatusCode != http.StatusOK {
			return tokenResponse{}, fmt.Errorf("oauth token request failed with status %d: %s", resp.StatusCode, raw)
		}

		var t tokenResponse
		if err := json.Unmarshal(raw, &t); err != nil {
			return tokenResponse{}, fmt.Errorf("decoding oauth token response: %w", err)
		}
		return t, nil
	})
	if err != nil {
		return "", err
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// accountNoFull is the "account-suffix" pair most KIS endpoints take as
// two query params rather than one hyphenated string.
func (c *kisRESTClient) accountNoFull() (string, string) {
	return c.creds.AccountNo, c.creds.AccountSuffix
}

// do issues one tr_id-tagged request (GET for queries, POST with a JSON
// body for orders) against the KIS API and
// returns the decoded body. trID selects mock vs real trading
// endpoints the same way mojito2's `mock` flag does internally.
func (c *kisRESTClient) do(ctx context.Context, method, path, trID string, query url.Values, body any) (map[string]any, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL + path
	if query != nil {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.creds.AppKey)
	req.Header.Set("appsecret", c.creds.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, raw)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", path, err)
	}
	if rtCd, ok := decoded["rt_cd"]; ok && rtCd != "0" {
		return nil, fmt.Errorf("%s %s rejected: %v", method, path, decoded["msg1"])
	}
	return decoded, nil
}

// trID returns the real-trading tr_id when trID is selected live, the
// paper-trading variant (prefixed with V instead of T) otherwise,
// matching KIS's mock/real tr_id convention.
func (c *kisRESTClient) trID(real string) string {
	if c.creds.Environment == "real" {
		return real
	}
	return "V" + real[1:]
}

func (c *kisRESTClient) FetchBalance(ctx context.Context) (map[string]any, error) {
	accNo, suffix := c.accountNoFull()
	query := url.Values{
		"CANO":                 {accNo},
		"ACNT_PRDT_CD":         {suffix},
		"AFHR_FLPR_YN":         {"N"},
		"OFL_YN":               {""},
		"INQR_DVSN":            {"02"},
		"UNPR_DVSN":            {"01"},
		"FUND_STTL_ICLD_YN":    {"N"},
		"FNCG_AMT_AUTO_RDPT_YN": {"N"},
		"PRCS_DVSN":            {"00"},
		"CTX_AREA_FK100":       {""},
		"CTX_AREA_NK100":       {""},
	}
	decoded, err := c.do(ctx, http.MethodGet, "/uapi/domestic-stock/v1/trading/inquire-balance", c.trID("TTTC8434R"), query, nil)
	if err != nil {
		return nil, err
	}
	if output2, ok := decoded["output2"].([]any); ok && len(output2) > 0 {
		if summary, ok := output2[0].(map[string]any); ok {
			return summary, nil
		}
	}
	return map[string]any{}, nil
}

func (c *kisRESTClient) FetchHoldings(ctx context.Context) ([]map[string]any, error) {
	accNo, suffix := c.accountNoFull()
	query := url.Values{
		"CANO":           {accNo},
		"ACNT_PRDT_CD":   {suffix},
		"AFHR_FLPR_YN":   {"N"},
		"OFL_YN":         {""},
		"INQR_DVSN":      {"02"},
		"UNPR_DVSN":      {"01"},
		"FUND_STTL_ICLD_YN": {"N"},
		"FNCG_AMT_AUTO_RDPT_YN": {"N"},
		"PRCS_DVSN":      {"00"},
		"CTX_AREA_FK100": {""},
		"CTX_AREA_NK100": {""},
	}
	decoded, err := c.do(ctx, http.MethodGet, "/uapi/domestic-stock/v1/trading/inquire-balance", c.trID("TTTC8434R"), query, nil)
	if err != nil {
		return nil, err
	}
	output1, _ := decoded["output1"].([]any)
	holdings := make([]map[string]any, 0, len(output1))
	for _, row := range output1 {
		if m, ok := row.(map[string]any); ok {
			holdings = append(holdings, m)
		}
	}
	return holdings, nil
}

func (c *kisRESTClient) FetchPrice(ctx context.Context, stockCode string) (map[string]any, error) {
	query := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {stockCode},
	}
	decoded, err := c.do(ctx, http.MethodGet, "/uapi/domestic-stock/v1/quotations/inquire-price", "FHKST01010100", query, nil)
	if err != nil {
		return nil, err
	}
	output, _ := decoded["output"].(map[string]any)
	return output, nil
}

func (c *kisRESTClient) FetchOHLCV(ctx context.Context, stockCode, period string, count int) ([]map[string]any, error) {
	periodCode := "D"
	switch period {
	case "W", "M":
		periodCode = period
	}
	query := url.Values{
		"FID_COND_MRKT_DIV_CODE": {"J"},
		"FID_INPUT_ISCD":         {stockCode},
		"FID_INPUT_DATE_1":       {""},
		"FID_INPUT_DATE_2":       {""},
		"FID_PERIOD_DIV_CODE":    {periodCode},
		"FID_ORG_ADJ_PRC":        {"0"},
	}
	decoded, err := c.do(ctx, http.MethodGet, "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", "FHKST03010100", query, nil)
	if err != nil {
		return nil, err
	}
	output2, _ := decoded["output2"].([]any)
	candles := make([]map[string]any, 0, len(output2))
	for i, row := range output2 {
		if i >= count {
			break
		}
		if m, ok := row.(map[string]any); ok {
			candles = append(candles, m)
		}
	}
	return candles, nil
}

func (c *kisRESTClient) order(ctx context.Context, stockCode string, quantity int, price float64, side string) (map[string]any, error) {
	accNo, suffix := c.accountNoFull()
	orderDivision := "01" // market
	priceStr := "0"
	if price > 0 {
		orderDivision = "00" // limit
		priceStr = strconv.FormatFloat(price, 'f', 0, 64)
	}

	body := map[string]string{
		"CANO":         accNo,
		"ACNT_PRDT_CD": suffix,
		"PDNO":         stockCode,
		"ORD_DVSN":     orderDivision,
		"ORD_QTY":      strconv.Itoa(quantity),
		"ORD_UNPR":     priceStr,
	}

	trID := "TTTC0802U" // buy
	if side == "sell" {
		trID = "TTTC0801U"
	}

	decoded, err := c.do(ctx, http.MethodPost, "/uapi/domestic-stock/v1/trading/order-cash", c.trID(trID), nil, body)
	if err != nil {
		return nil, err
	}
	output, _ := decoded["output"].(map[string]any)
	return output, nil
}

func (c *kisRESTClient) CreateMarketBuyOrder(ctx context.Context, stockCode string, quantity int) (map[string]any, error) {
	return c.order(ctx, stockCode, quantity, 0, "buy")
}

func (c *kisRESTClient) CreateMarketSellOrder(ctx context.Context, stockCode string, quantity int) (map[string]any, error) {
	return c.order(ctx, stockCode, quantity, 0, "sell")
}

func (c *kisRESTClient) CreateLimitBuyOrder(ctx context.Context, stockCode string, quantity int, price float64) (map[string]any, error) {
	return c.order(ctx, stockCode, quantity, price, "buy")
}

func (c *kisRESTClient) CreateLimitSellOrder(ctx context.Context, stockCode string, quantity int, price float64) (map[string]any, error) {
	return c.order(ctx, stockCode, quantity, price, "sell")
}
