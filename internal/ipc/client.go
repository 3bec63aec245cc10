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

// Start requests the daemon to begin its protocol session.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Shuttle.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to end its protocol session.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Shuttle.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Shuttle.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Import submits an artifact path for acquisition.
func (c *Client) Import(path string) (*ImportResponse, error) {
	var resp ImportResponse
	req := ImportRequest{Path: path}
	if err := c.client.Call("Shuttle.Import", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportsList returns catalog rows optionally filtered by statuses.
func (c *Client) ImportsList(statuses []string) (*ImportsListResponse, error) {
	var resp ImportsListResponse
	req := ImportsListRequest{Statuses: statuses}
	if err := c.client.Call("Shuttle.ImportsList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportsClear removes all rows from the catalog.
func (c *Client) ImportsClear() (*ImportsClearResponse, error) {
	var resp ImportsClearResponse
	if err := c.client.Call("Shuttle.ImportsClear", ImportsClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryList returns recent import history entries.
func (c *Client) HistoryList(limit int) (*HistoryListResponse, error) {
	var resp HistoryListResponse
	req := HistoryListRequest{Limit: limit}
	if err := c.client.Call("Shuttle.HistoryList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryClear empties the import history.
func (c *Client) HistoryClear() (*HistoryClearResponse, error) {
	var resp HistoryClearResponse
	if err := c.client.Call("Shuttle.HistoryClear", HistoryClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Shuttle.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Shuttle.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
