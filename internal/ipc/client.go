package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping confirms the daemon process is answering on the socket.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Spool.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to bring its components up.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Spool.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to shut its components down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Spool.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Spool.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Downloads lists the engine's current downloads.
func (c *Client) Downloads() (*DownloadsResponse, error) {
	var resp DownloadsResponse
	if err := c.client.Call("Spool.Downloads", DownloadsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Add submits a new download built from mirror URIs.
func (c *Client) Add(uris []string, dir string) (*AddResponse, error) {
	var resp AddResponse
	req := AddRequest{URIs: uris, Dir: dir}
	if err := c.client.Call("Spool.Add", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause pauses one download.
func (c *Client) Pause(gid string) error {
	var resp PauseResponse
	return c.client.Call("Spool.Pause", PauseRequest{GID: gid}, &resp)
}

// Unpause resumes one paused download.
func (c *Client) Unpause(gid string) error {
	var resp UnpauseResponse
	return c.client.Call("Spool.Unpause", UnpauseRequest{GID: gid}, &resp)
}

// Remove removes one download from the engine.
func (c *Client) Remove(gid string) error {
	var resp RemoveResponse
	return c.client.Call("Spool.Remove", RemoveRequest{GID: gid}, &resp)
}

// PauseAll pauses every active download.
func (c *Client) PauseAll() error {
	var resp PauseAllResponse
	return c.client.Call("Spool.PauseAll", PauseAllRequest{}, &resp)
}

// UnpauseAll resumes every paused download.
func (c *Client) UnpauseAll() error {
	var resp UnpauseAllResponse
	return c.client.Call("Spool.UnpauseAll", UnpauseAllRequest{}, &resp)
}

// HistoryPage fetches one page of finished downloads, newest first.
func (c *Client) HistoryPage(offset, limit int) (*HistoryPageResponse, error) {
	var resp HistoryPageResponse
	req := HistoryPageRequest{Offset: offset, Limit: limit}
	if err := c.client.Call("Spool.HistoryPage", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistorySearch fetches one page of finished downloads matching term.
func (c *Client) HistorySearch(term string, offset, limit int) (*HistorySearchResponse, error) {
	var resp HistorySearchResponse
	req := HistorySearchRequest{Term: term, Offset: offset, Limit: limit}
	if err := c.client.Call("Spool.HistorySearch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryClear removes all history records.
func (c *Client) HistoryClear() (*HistoryClearResponse, error) {
	var resp HistoryClearResponse
	if err := c.client.Call("Spool.HistoryClear", HistoryClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Spool.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon's active run log.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Spool.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
