package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// ErrNotFound is returned when the platform has no content for the id.
var ErrNotFound = errors.New("upstream content not found")

// session is the negotiated key material plus credentials. Guarded by
// Client.mu; thrown away wholesale when the platform rejects it.
type session struct {
	hmacKey string
	aesKey  string
	iv      string
	token   string
	userID  int64
}

// apiResponse is the platform's common envelope. Data stays raw because the
// shape differs per route.
type apiResponse struct {
	Code  int             `json:"code"`
	Msg   string          `json:"msg"`
	Total int             `json:"total"`
	Data  json.RawMessage `json:"data"`
}

// Client talks to the Sohu content platform. Every authenticated call carries
// an AES-encrypted, HMAC-signed envelope in the x-encrypt-key header built
// from per-session key material, so requests are serialized on a mutex rather
// than shared across goroutines.
type Client struct {
	cfg        *config.SohuConfig
	httpClient *http.Client
	logger     *logrus.Logger

	mu      sync.Mutex
	session *session
}

func New(cfg *config.SohuConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// requestEnvelope is the per-request auth payload. Field order matches what
// the platform's own web client produces.
type requestEnvelope struct {
	Token     string `json:"token"`
	UserID    int64  `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	Nonce     string `json:"nonce"`
	Sign      string `json:"sign"`
}

func buildEnvelope(s *session, relURL string, now time.Time) (string, error) {
	env := requestEnvelope{
		Token:     s.token,
		UserID:    s.userID,
		Timestamp: now.UnixMilli(),
		URL:       relURL,
		Platform:  "web",
		Nonce:     strings.ReplaceAll(uuid.New().String(), "-", ""),
	}
	env.Sign = signParams(map[string]string{
		"token":     env.Token,
		"userId":    strconv.FormatInt(env.UserID, 10),
		"timestamp": strconv.FormatInt(env.Timestamp, 10),
		"url":       env.URL,
		"platform":  env.Platform,
		"nonce":     env.Nonce,
	}, s.hmacKey)

	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return encryptEnvelope(string(payload), s.aesKey, s.iv)
}

// doSigned performs one authenticated call with the client's retry policy:
// exponential backoff on transport errors, and on a 401 the session is
// renegotiated once before retrying.
func (c *Client) doSigned(ctx context.Context, method, relURL string, body interface{}) (*apiResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	relogged := false
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		s, err := c.ensureSessionLocked(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := c.sendLocked(ctx, s, method, relURL, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.WithError(err).WithFields(logrus.Fields{
				"url":     relURL,
				"attempt": attempt + 1,
			}).Warn("Upstream request failed")
			continue
		}

		if resp.Code == http.StatusUnauthorized {
			c.session = nil
			if relogged {
				return nil, fmt.Errorf("upstream rejected credentials: %s", resp.Msg)
			}
			relogged = true
			lastErr = fmt.Errorf("upstream session expired: %s", resp.Msg)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// ensureSessionLocked negotiates key material and logs in if no live session
// exists. Callers must hold c.mu.
func (c *Client) ensureSessionLocked(ctx context.Context) (*session, error) {
	if c.session != nil {
		return c.session, nil
	}

	s, err := c.handshake(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.login(ctx, s); err != nil {
		return nil, err
	}

	c.session = s
	c.logger.WithField("upstream_user_id", s.userID).Info("Upstream session established")
	return s, nil
}

type keyMaterial struct {
	HMACKey string `json:"hmacKey"`
	AESKey  string `json:"aesKey"`
	IV      string `json:"iv"`
}

// handshake fetches per-session key material. This is the only call that goes
// out without an envelope.
func (c *Client) handshake(ctx context.Context) (*session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/app/v1/query/aesKey", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("key handshake failed: %w", err)
	}
	defer resp.Body.Close()

	api, err := decodeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("key handshake failed: %w", err)
	}
	if api.Code != http.StatusOK {
		return nil, fmt.Errorf("key handshake rejected: code=%d msg=%s", api.Code, api.Msg)
	}

	var keys keyMaterial
	if err := json.Unmarshal(api.Data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse key material: %w", err)
	}
	if keys.HMACKey == "" || keys.AESKey == "" || keys.IV == "" {
		return nil, fmt.Errorf("incomplete key material from handshake")
	}

	return &session{hmacKey: keys.HMACKey, aesKey: keys.AESKey, iv: keys.IV}, nil
}

// login exchanges the configured account for an access token. The request
// already carries a signed envelope built from the fresh key material with an
// empty token.
func (c *Client) login(ctx context.Context, s *session) error {
	body := map[string]string{
		"account":  c.cfg.Account,
		"password": c.cfg.Password,
	}

	resp, err := c.sendLocked(ctx, s, http.MethodPost, "/auth/v2/login", body)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if resp.Code != http.StatusOK {
		return fmt.Errorf("login rejected: code=%d msg=%s", resp.Code, resp.Msg)
	}

	var login struct {
		AccessToken string `json:"accessToken"`
		UserID      int64  `json:"userId"`
	}
	if err := json.Unmarshal(resp.Data, &login); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if login.AccessToken == "" {
		return fmt.Errorf("login returned empty token")
	}

	s.token = login.AccessToken
	s.userID = login.UserID
	return nil
}

// sendLocked issues one signed request. Callers must hold c.mu.
func (c *Client) sendLocked(ctx context.Context, s *session, method, relURL string, body interface{}) (*apiResponse, error) {
	envelope, err := buildEnvelope(s, relURL, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to build envelope: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+relURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-encrypt-key", envelope)
	req.Header.Set("Version", "1.5.0")
	req.Header.Set("syssource", "sohuglobal")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	api, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && api.Code == 0 {
		api.Code = http.StatusUnauthorized
	}
	return api, nil
}

// decodeResponse parses the common envelope. The platform labels JSON
// payloads text/html on several routes, so decode by content and only fall
// back to an error when the body truly is not JSON.
func decodeResponse(resp *http.Response) (*apiResponse, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		snippet := string(raw)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("non-JSON response (status %d): %s", resp.StatusCode, snippet)
	}
	return &api, nil
}

// ListFilters narrows an article list request. Zero values fall back to the
// configured site and category.
type ListFilters struct {
	State      string
	SiteID     int
	CategoryID int
}

// ListArticles fetches one page of the article feed. aiRec is pinned to false
// so the platform does not fold its own personalization into our candidate
// stream and successive pages stay distinct.
func (c *Client) ListArticles(ctx context.Context, page, size int, filters *ListFilters) ([]models.Article, int, error) {
	if filters == nil {
		filters = &ListFilters{State: "OnShelf", SiteID: c.cfg.SiteID, CategoryID: c.cfg.CategoryID}
	}

	params := url.Values{}
	params.Set("pageNum", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(size))
	params.Set("aiRec", "false")
	if filters.State != "" {
		params.Set("state", filters.State)
	}
	if filters.SiteID > 0 {
		params.Set("siteId", strconv.Itoa(filters.SiteID))
	}
	if filters.CategoryID > 0 {
		params.Set("categoryId", strconv.Itoa(filters.CategoryID))
	}

	relURL := "/app/api/content/article/list?" + params.Encode()
	resp, err := c.doSigned(ctx, http.MethodGet, relURL, nil)
	if err != nil {
		return nil, 0, err
	}
	if resp.Code != http.StatusOK {
		return nil, 0, fmt.Errorf("article list rejected: code=%d msg=%s", resp.Code, resp.Msg)
	}

	var articles []models.Article
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &articles); err != nil {
			return nil, 0, fmt.Errorf("failed to parse article list: %w", err)
		}
	}
	for i := range articles {
		normalizeArticle(&articles[i])
	}

	c.logger.WithFields(logrus.Fields{
		"page":  page,
		"size":  size,
		"got":   len(articles),
		"total": resp.Total,
	}).Debug("Fetched article list")

	return articles, resp.Total, nil
}

// GetArticle fetches one content detail. contentType defaults to article.
func (c *Client) GetArticle(ctx context.Context, contentType string, id int64) (*models.Article, error) {
	if contentType == "" {
		contentType = "article"
	}

	relURL := fmt.Sprintf("/app/api/content/%s/detail/%d", contentType, id)
	resp, err := c.doSigned(ctx, http.MethodGet, relURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.Code == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("content detail rejected: code=%d msg=%s", resp.Code, resp.Msg)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, ErrNotFound
	}

	var article models.Article
	if err := json.Unmarshal(resp.Data, &article); err != nil {
		return nil, fmt.Errorf("failed to parse content detail: %w", err)
	}
	normalizeArticle(&article)

	return &article, nil
}

// GetArticlesBatch fetches details one id at a time; the platform has no bulk
// detail route that returns full bodies. Ids the platform cannot serve land
// in missing rather than failing the batch.
func (c *Client) GetArticlesBatch(ctx context.Context, contentType string, ids []int64) ([]models.Article, []int64, error) {
	var found []models.Article
	var missing []int64

	for _, id := range ids {
		article, err := c.GetArticle(ctx, contentType, id)
		if err != nil {
			if ctx.Err() != nil {
				return found, missing, ctx.Err()
			}
			if !errors.Is(err, ErrNotFound) {
				c.logger.WithError(err).WithField("content_id", id).Warn("Batch detail fetch failed")
			}
			missing = append(missing, id)
			continue
		}
		found = append(found, *article)
	}

	return found, missing, nil
}

// normalizeArticle cleans upstream text and labels the item recommendable.
func normalizeArticle(a *models.Article) {
	a.Title = CleanText(a.Title)
	a.Content = CleanText(a.Content)
	a.Recommendable = IsRecommendable(a)
}

// IsRecommendable applies the serving criteria: listed and audit-passed, with
// enough material to render a card.
func IsRecommendable(a *models.Article) bool {
	if strings.TrimSpace(a.Title) == "" {
		return false
	}
	if a.Cover() == "" {
		return false
	}
	if a.State != "OnShelf" || a.AuditState != "Pass" {
		return false
	}

	hasContent := strings.TrimSpace(a.Content) != "" ||
		len(a.Images) > 0 ||
		(a.Title != "" && a.Cover() != "")
	return hasContent
}
