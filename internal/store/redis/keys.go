package redis

const (
	// KeyPrefixBookmark is the prefix for bookmark rows (JSON)
	KeyPrefixBookmark = "bookmarks:bookmark:"
	// KeyPrefixOwner is the prefix for the per-owner sorted set of IDs,
	// scored by CreatedAt in unix milliseconds
	KeyPrefixOwner = "bookmarks:owner:"
	// KeySequence is the INCR counter that assigns bookmark IDs
	KeySequence = "bookmarks:seq"
	// ChannelChanges is the Pub/Sub channel carrying change events
	ChannelChanges = "bookmarks:changes"
)

// BookmarkKey returns the Redis key for a bookmark row
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// OwnerKey returns the Redis key for the sorted set of an owner's bookmark IDs
func OwnerKey(ownerID string) string {
	return KeyPrefixOwner + ownerID
}
