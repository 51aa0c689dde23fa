package domain

// SocketID identifies one connection to the coordinator. It is assigned
// per connection and is not stable across reconnects.
type SocketID string

// Client is one participant of a watch session.
type Client struct {
	SocketID    SocketID `json:"socketId"`
	Promoted    bool     `json:"promoted"`
	DisplayName string   `json:"displayName,omitempty"`
}

// NewClient avoids raw literals in adapters and keeps construction obvious.
func NewClient(sid SocketID, name string) *Client {
	return &Client{SocketID: sid, DisplayName: name}
}
