// Package domain holds the protocol value types shared by hook and
// extension callback signatures. The protocol engine that populates them
// lives outside this runtime.
package domain

import "time"

// Client is the view of a connected client that extension callbacks see.
type Client struct {
	Nick    string
	User    string
	Host    string
	Account string // empty when not logged in
	Oper    bool
}

// Channel is the view of a channel that extension callbacks see.
type Channel struct {
	Name       string
	Topic      string
	TopicSetBy string
	TopicSetAt time.Time
	Modes      string
	ModeParams string
	Persistent bool // +P: survives the last user leaving
}

// JoinRequest is the argument of the CanJoin check point.
type JoinRequest struct {
	Client  *Client
	Channel *Channel
	Key     string
}

// ChanMessage is a message heading to a channel.
type ChanMessage struct {
	Client  *Client
	Channel *Channel
	Text    string
	Notice  bool
}

// QuitEvent is fired when a local client disconnects.
type QuitEvent struct {
	Client  *Client
	Comment string
}

// MessageEvent is the argument of the NewMessage point. Hook callbacks
// synthesize outgoing message tags into Tags.
type MessageEvent struct {
	Sender *Client
	Tags   map[string]string
}

// RehashInfo is the argument of the RehashComplete point.
type RehashInfo struct {
	Swept int // handlers freed by the post-rehash sweep
}

// HistoryFilter narrows a history backend request.
type HistoryFilter struct {
	LastLines   int
	LastSeconds int
}
