package models

// UnreadEntry is one row of the unread ledger.
type UnreadEntry struct {
	ChannelKey string `db:"channel_key" json:"channel_key"`
	Count      int    `db:"count" json:"count"`
}
