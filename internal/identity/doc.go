// Package identity derives deterministic and path-safe identifiers for
// jobs.
//
// UniqueJobID is a pure function of a function name and its arguments:
// identical (name, args) pairs always hash to the same 64-character hex
// digest, regardless of the order keys were inserted into the args map.
// PathSafeJobID layers a random UUIDv4 on top of that digest so two
// invocations of the same function with the same arguments still get
// distinct job identifiers, while the identifier itself stays safe to
// use as e.g. a filesystem path component or a log line token.
package identity
