package protocol

import (
	"bytes"
	"strconv"

	"github.com/dreamware/mnemo/internal/storage"
)

// Execute runs a parsed command against the store and returns the full
// reply, terminator included. The quit command returns an empty reply; the
// caller owns closing the connection.
//
// The mapping onto the storage contract:
//
//	set     → Put          (false only means oversize → SERVER_ERROR)
//	add     → PutIfAbsent  (false → NOT_STORED)
//	replace → Set          (false → NOT_STORED)
//	append  → Get + Put of the concatenation (absent key → NOT_STORED)
//	get     → Get per key, hits only, then END
//	delete  → Delete       (false → NOT_FOUND)
func Execute(store storage.Storage, cmd *Command) []byte {
	switch cmd.Name {
	case "set":
		if !store.Put(cmd.Keys[0], cmd.Data) {
			return []byte("SERVER_ERROR object too large for cache\r\n")
		}
		return []byte(ReplyStored)

	case "add":
		if !store.PutIfAbsent(cmd.Keys[0], cmd.Data) {
			return []byte(ReplyNotStored)
		}
		return []byte(ReplyStored)

	case "replace":
		if !store.Set(cmd.Keys[0], cmd.Data) {
			return []byte(ReplyNotStored)
		}
		return []byte(ReplyStored)

	case "append":
		return executeAppend(store, cmd)

	case "get":
		return executeGet(store, cmd)

	case "delete":
		if !store.Delete(cmd.Keys[0]) {
			return []byte(ReplyNotFound)
		}
		return []byte(ReplyDeleted)

	case "quit":
		return nil

	default:
		return []byte(ReplyError)
	}
}

// executeAppend concatenates the payload onto an existing value. The
// read-modify-write is atomic only per shard call, not across the pair;
// that is the documented consistency envelope — there is no cross-call
// transaction in the storage contract.
func executeAppend(store storage.Storage, cmd *Command) []byte {
	key := cmd.Keys[0]
	old, ok := store.Get(key)
	if !ok {
		return []byte(ReplyNotStored)
	}

	joined := make([]byte, 0, len(old)+len(cmd.Data))
	joined = append(joined, old...)
	joined = append(joined, cmd.Data...)
	if !store.Put(key, joined) {
		return []byte("SERVER_ERROR object too large for cache\r\n")
	}
	return []byte(ReplyStored)
}

// executeGet renders a VALUE block per present key, then END. Flags are
// echoed as 0: the cache treats them as opaque and does not store them.
func executeGet(store storage.Storage, cmd *Command) []byte {
	var buf bytes.Buffer
	for _, key := range cmd.Keys {
		value, ok := store.Get(key)
		if !ok {
			continue
		}
		buf.WriteString("VALUE ")
		buf.WriteString(key)
		buf.WriteString(" 0 ")
		buf.WriteString(strconv.Itoa(len(value)))
		buf.WriteString("\r\n")
		buf.Write(value)
		buf.WriteString("\r\n")
	}
	buf.WriteString(ReplyEnd)
	return buf.Bytes()
}
