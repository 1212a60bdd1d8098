// Package channel owns the persisted group-channel slots and the dense
// runtime channel list derived from them at boot.
//
// The persisted side is a sparse, fixed-capacity array of Slot values that
// lives inside the node preferences record. The runtime side is an ordered
// projection: index 0 is always the built-in Public channel with its
// well-known pre-shared key, followed by every active slot whose key could
// be derived. Slots with missing or invalid key material simply do not
// appear in the runtime list.
//
// Two key policies exist: explicit keys given as 32 or 64 hex characters,
// and hashtag channels (name begins with '#') whose key is the first 16
// bytes of SHA-256 over the name. The truncation to 16 bytes is deliberate,
// for compatibility with the companion mobile app.
package channel
