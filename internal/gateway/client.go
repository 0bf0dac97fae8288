package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

const (
	defaultRequestTimeout = 10 * time.Second

	sessionPath    = "/v1/sessions"
	validationPath = "/v1/validate"
)

// Config описывает подключение к внешнему расчётному провайдеру.
type Config struct {
	BaseURL        string
	StoreID        string
	StorePassword  string
	RequestTimeout time.Duration
}

// Client — HTTP-адаптер расчётного шлюза. Оба вызова — блокирующий сетевой
// ввод-вывод с таймаутом; таймаут трактуется как явный отказ шлюза и
// запускает ту же компенсацию.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Entry
}

// NewClient создаёт адаптер шлюза. Клиент и его жизненный цикл принадлежат
// композиционному корню процесса, а не глобальному состоянию пакета.
func NewClient(cfg Config, logger *log.Entry) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = log.WithField("component", "settlement-gateway")
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

type sessionRequestBody struct {
	StoreID       string `json:"store_id"`
	StorePassword string `json:"store_password"`
	TransactionID string `json:"tran_id"`
	OrderRef      string `json:"order_ref"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerName  string `json:"cus_name"`
	CustomerPhone string `json:"cus_phone"`
}

type sessionResponseBody struct {
	Status      string `json:"status"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Reason      string `json:"failed_reason"`
}

// CreateSession создаёт сессию оплаты у шлюза и возвращает адрес редиректа.
func (c *Client) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error) {
	body := sessionRequestBody{
		StoreID:       c.cfg.StoreID,
		StorePassword: c.cfg.StorePassword,
		TransactionID: req.TransactionID,
		OrderRef:      req.OrderRef,
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}

	var resp sessionResponseBody
	if err := c.post(ctx, sessionPath, body, &resp); err != nil {
		return domain.Session{}, err
	}

	if !strings.EqualFold(resp.Status, "success") {
		c.logger.WithFields(log.Fields{
			"tran_id": req.TransactionID,
			"reason":  resp.Reason,
		}).Warn("gateway declined session creation")
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, resp.Reason)
	}
	if resp.RedirectURL == "" {
		return domain.Session{}, fmt.Errorf("%w: empty redirect url", domain.ErrGatewayRejected)
	}

	return domain.Session{SessionID: resp.SessionID, RedirectURL: resp.RedirectURL}, nil
}

type validationResponseBody struct {
	Status        string `json:"status"`
	TransactionID string `json:"tran_id"`
	ValidationID  string `json:"val_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// Validate повторно проверяет уведомление у шлюза по validation id.
// Входящему payload уведомления доверять нельзя: исход и сумма берутся
// только из этого ответа.
func (c *Client) Validate(ctx context.Context, validationID string) (domain.ValidationResult, error) {
	raw, err := c.get(ctx, validationPath+"?val_id="+validationID)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	var resp validationResponseBody
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.ValidationResult{}, fmt.Errorf("decode validation response: %w", err)
	}

	amount := decimal.Zero
	if resp.Amount != "" {
		amount, err = decimal.NewFromString(resp.Amount)
		if err != nil {
			return domain.ValidationResult{}, fmt.Errorf("parse validated amount %q: %w", resp.Amount, err)
		}
	}

	return domain.ValidationResult{
		Status:        strings.ToUpper(resp.Status),
		TransactionID: resp.TransactionID,
		CorrelationID: resp.ValidationID,
		Amount:        amount,
		Currency:      resp.Currency,
		Raw:           raw,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Сетевая ошибка и таймаут — временные: состояние у шлюза не создано.
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayRejected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayRejected, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	return raw, nil
}

var _ domain.SettlementGateway = (*Client)(nil)
