package aria2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"spool/internal/config"
	"spool/internal/services"
)

// HTTPDoer describes the HTTP client used to reach the aria2 RPC endpoint.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpClient struct {
	rpcURL string
	secret string
	client HTTPDoer
}

// NewHTTPClient constructs a JSON-RPC client for the given endpoint. The
// secret, when set, is passed as the token parameter on every call.
func NewHTTPClient(rpcURL, secret string, client HTTPDoer) Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClient{
		rpcURL: strings.TrimSpace(rpcURL),
		secret: strings.TrimSpace(secret),
		client: client,
	}
}

// NewConfiguredClient builds a client from daemon configuration.
func NewConfiguredClient(cfg *config.Config) Client {
	timeout := time.Duration(cfg.Aria2.RequestTimeout) * time.Second
	return NewHTTPClient(cfg.Aria2.RPCURL, cfg.Aria2.Secret, &http.Client{Timeout: timeout})
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// rawTask mirrors the wire shape of one download. aria2 encodes every
// numeric field as a decimal string.
type rawTask struct {
	GID             string    `json:"gid"`
	Status          string    `json:"status"`
	TotalLength     string    `json:"totalLength"`
	CompletedLength string    `json:"completedLength"`
	DownloadSpeed   string    `json:"downloadSpeed"`
	UploadSpeed     string    `json:"uploadSpeed"`
	Connections     string    `json:"connections"`
	ErrorCode       string    `json:"errorCode"`
	ErrorMessage    string    `json:"errorMessage"`
	Dir             string    `json:"dir"`
	Files           []rawFile `json:"files"`
	BitTorrent      *struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
	} `json:"bittorrent"`
}

type rawFile struct {
	Path            string `json:"path"`
	Length          string `json:"length"`
	CompletedLength string `json:"completedLength"`
}

type rawGlobalStat struct {
	DownloadSpeed   string `json:"downloadSpeed"`
	UploadSpeed     string `json:"uploadSpeed"`
	NumActive       string `json:"numActive"`
	NumWaiting      string `json:"numWaiting"`
	NumStopped      string `json:"numStopped"`
	NumStoppedTotal string `json:"numStoppedTotal"`
}

type rawVersion struct {
	Version         string   `json:"version"`
	EnabledFeatures []string `json:"enabledFeatures"`
}

func (c *httpClient) call(ctx context.Context, method string, params []any, result any) error {
	if c.secret != "" {
		params = append([]any{"token:" + c.secret}, params...)
	}
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("aria2 %s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("aria2 %s: new request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "aria2", method, "rpc transport", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "aria2", method, "read response", err)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return services.Wrap(services.ErrTransient, "aria2", method,
				fmt.Sprintf("http %d", resp.StatusCode), nil)
		}
		return services.Wrap(services.ErrTransient, "aria2", method, "decode response", err)
	}
	if decoded.Error != nil {
		return mapRPCError(method, decoded.Error)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, result); err != nil {
		return services.Wrap(services.ErrTransient, "aria2", method, "decode result", err)
	}
	return nil
}

// mapRPCError classifies engine-side failures. aria2 signals an unknown gid
// and a bad secret through the message text, not dedicated codes.
func mapRPCError(method string, rpcErr *rpcError) error {
	message := strings.TrimSpace(rpcErr.Message)
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no such download"):
		return services.Wrap(services.ErrNotFound, "aria2", method, message, nil)
	case strings.Contains(lower, "unauthorized"):
		return services.Wrap(services.ErrConfiguration, "aria2", method, "rpc secret rejected", nil)
	default:
		return services.Wrap(services.ErrTransient, "aria2", method,
			fmt.Sprintf("rpc error %d: %s", rpcErr.Code, message), nil)
	}
}

func (c *httpClient) AddURI(ctx context.Context, uris []string, options map[string]string) (string, error) {
	cleaned := make([]string, 0, len(uris))
	for _, uri := range uris {
		if trimmed := strings.TrimSpace(uri); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "", services.Wrap(services.ErrValidation, "aria2", "addUri", "no uris provided", nil)
	}

	params := []any{cleaned}
	if len(options) > 0 {
		params = append(params, options)
	}

	var gid string
	if err := c.call(ctx, "aria2.addUri", params, &gid); err != nil {
		return "", err
	}
	return gid, nil
}

func (c *httpClient) TellStatus(ctx context.Context, gid string) (*Snapshot, error) {
	var raw rawTask
	if err := c.call(ctx, "aria2.tellStatus", []any{gid}, &raw); err != nil {
		return nil, err
	}
	return snapshotFromRaw(raw), nil
}

func (c *httpClient) Pause(ctx context.Context, gid string) error {
	return c.call(ctx, "aria2.pause", []any{gid}, nil)
}

func (c *httpClient) Unpause(ctx context.Context, gid string) error {
	return c.call(ctx, "aria2.unpause", []any{gid}, nil)
}

func (c *httpClient) Remove(ctx context.Context, gid string) error {
	return c.call(ctx, "aria2.remove", []any{gid}, nil)
}

func (c *httpClient) PauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.pauseAll", nil, nil)
}

func (c *httpClient) UnpauseAll(ctx context.Context) error {
	return c.call(ctx, "aria2.unpauseAll", nil, nil)
}

func (c *httpClient) TellActive(ctx context.Context) ([]*Snapshot, error) {
	var raws []rawTask
	if err := c.call(ctx, "aria2.tellActive", nil, &raws); err != nil {
		return nil, err
	}
	return snapshotsFromRaw(raws), nil
}

func (c *httpClient) TellWaiting(ctx context.Context, offset, limit int) ([]*Snapshot, error) {
	var raws []rawTask
	if err := c.call(ctx, "aria2.tellWaiting", []any{offset, limit}, &raws); err != nil {
		return nil, err
	}
	return snapshotsFromRaw(raws), nil
}

func (c *httpClient) TellStopped(ctx context.Context, offset, limit int) ([]*Snapshot, error) {
	var raws []rawTask
	if err := c.call(ctx, "aria2.tellStopped", []any{offset, limit}, &raws); err != nil {
		return nil, err
	}
	return snapshotsFromRaw(raws), nil
}

func (c *httpClient) GetGlobalStat(ctx context.Context) (*GlobalStat, error) {
	var raw rawGlobalStat
	if err := c.call(ctx, "aria2.getGlobalStat", nil, &raw); err != nil {
		return nil, err
	}
	return &GlobalStat{
		DownloadSpeed:   parseCounter(raw.DownloadSpeed),
		UploadSpeed:     parseCounter(raw.UploadSpeed),
		NumActive:       int(parseCounter(raw.NumActive)),
		NumWaiting:      int(parseCounter(raw.NumWaiting)),
		NumStopped:      int(parseCounter(raw.NumStopped)),
		NumStoppedTotal: int(parseCounter(raw.NumStoppedTotal)),
	}, nil
}

func (c *httpClient) GetVersion(ctx context.Context) (*VersionInfo, error) {
	var raw rawVersion
	if err := c.call(ctx, "aria2.getVersion", nil, &raw); err != nil {
		return nil, err
	}
	return &VersionInfo{Version: raw.Version, EnabledFeatures: raw.EnabledFeatures}, nil
}

func snapshotFromRaw(raw rawTask) *Snapshot {
	snap := &Snapshot{
		GID:             raw.GID,
		Status:          normalizeStatus(raw.Status),
		TotalLength:     parseCounter(raw.TotalLength),
		CompletedLength: parseCounter(raw.CompletedLength),
		DownloadSpeed:   parseCounter(raw.DownloadSpeed),
		UploadSpeed:     parseCounter(raw.UploadSpeed),
		Connections:     int(parseCounter(raw.Connections)),
		ErrorCode:       strings.TrimSpace(raw.ErrorCode),
		ErrorMessage:    strings.TrimSpace(raw.ErrorMessage),
		Dir:             raw.Dir,
	}
	for _, file := range raw.Files {
		snap.Files = append(snap.Files, FileEntry{
			Path:            file.Path,
			Length:          parseCounter(file.Length),
			CompletedLength: parseCounter(file.CompletedLength),
		})
	}
	torrentName := ""
	if raw.BitTorrent != nil {
		torrentName = raw.BitTorrent.Info.Name
	}
	snap.Name = taskName(torrentName, snap.Files, snap.GID)
	return snap
}

func snapshotsFromRaw(raws []rawTask) []*Snapshot {
	snaps := make([]*Snapshot, 0, len(raws))
	for _, raw := range raws {
		snaps = append(snaps, snapshotFromRaw(raw))
	}
	return snaps
}

func parseCounter(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
