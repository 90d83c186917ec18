// Package protocol implements the memcached-family text protocol the server
// speaks: line-oriented, CRLF-terminated commands with optional payload
// blocks, and the fixed textual replies clients expect.
//
// # Commands
//
// Storage commands carry a payload announced by a byte count:
//
//	set <key> <flags> <exptime> <bytes>\r\n<payload>\r\n  → STORED
//	add <key> <flags> <exptime> <bytes>\r\n<payload>\r\n  → STORED | NOT_STORED
//	replace <key> <flags> <exptime> <bytes>\r\n<payload>\r\n → STORED | NOT_STORED
//	append <key> <flags> <exptime> <bytes>\r\n<payload>\r\n  → STORED | NOT_STORED
//
// Retrieval and deletion are single-line:
//
//	get <key>[ <key>…]\r\n → VALUE <key> <flags> <bytes>\r\n<payload>\r\n … END
//	delete <key>\r\n       → DELETED | NOT_FOUND
//	quit\r\n               → closes the connection
//
// The <flags> and <exptime> fields are parsed for conformance but otherwise
// opaque: the cache neither stores flags nor expires entries, and replies
// always echo flags as 0.
//
// # Error discipline
//
// Malformed input splits into two classes. A bad command line (unknown verb,
// wrong argument count, unparsable number) is recoverable: the stream is
// still aligned on line boundaries, so the server replies ERROR or
// CLIENT_ERROR and keeps the connection. A framing violation inside a
// payload block (missing CRLF terminator, short read) desynchronizes the
// stream; the only safe move is to drop the connection, and such errors are
// marked fatal.
package protocol
