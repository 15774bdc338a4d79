package database

// EntryRecord is a key/value pair held by one node.
type EntryRecord struct {
	NodeID string
	Key    string
	Hash   uint64
	Value  string
}

// encodeHash maps an unsigned ring position onto BIGINT so that SQL ordering
// matches ring ordering.
func encodeHash(h uint64) int64 {
	return int64(h ^ (1 << 63))
}

func decodeHash(v int64) uint64 {
	return uint64(v) ^ (1 << 63)
}
