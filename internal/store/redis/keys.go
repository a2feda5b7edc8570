package redis

import (
	"fmt"
	"strconv"
)

// DefaultKeyPrefix namespaces every history key.
const DefaultKeyPrefix = "relay:"

// keys builds the Redis keys for one prefix.
//
//	<prefix>history:seq           INCR counter, never decremented
//	<prefix>history:index         ZSET score=timestamp µs, member=zero-padded id
//	<prefix>history:record:<id>   full record JSON
//	<prefix>history:summary:<id>  list projection JSON
type keys struct {
	prefix string
}

func (k keys) Seq() string   { return k.prefix + "history:seq" }
func (k keys) Index() string { return k.prefix + "history:index" }

func (k keys) Record(id int64) string {
	return k.prefix + "history:record:" + strconv.FormatInt(id, 10)
}

func (k keys) Summary(id int64) string {
	return k.prefix + "history:summary:" + strconv.FormatInt(id, 10)
}

// Member pads id so lexical ZSET order among equal scores equals numeric order.
func Member(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// ParseMember extracts the id from an index member.
func ParseMember(member string) (int64, error) {
	id, err := strconv.ParseInt(member, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index member: %s", member)
	}
	return id, nil
}
