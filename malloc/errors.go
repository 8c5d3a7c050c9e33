package malloc

import "errors"

// ErrorOutofMemory is returned when the OS refuses a mapping request;
// it surfaces unchanged from the page cache up through the central
// cache and thread cache to the caller.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

// ErrorInvalidSize is returned for Allocate(0); the system allocator
// contract this package mirrors also rejects zero-size requests.
var ErrorInvalidSize = errors.New("malloc.invalidsize")
